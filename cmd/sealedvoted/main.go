package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sealedvote/sealedvote/api"
	"github.com/sealedvote/sealedvote/config"
	"github.com/sealedvote/sealedvote/ledger"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/rounds"
	"github.com/sealedvote/sealedvote/service"
	"github.com/sealedvote/sealedvote/storage"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
	"golang.org/x/sync/errgroup"
)

// escrowAccount is where proposal fees are held until settlement.
var escrowAccount = common.HexToAddress("0x00000000000000000000000000000000e5c40000")

func main() {
	// Load .env from CWD when present, otherwise use the environment as-is.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	log.Init(cfg.LogLevel, "stdout", nil)
	log.Infow("starting node", "config", cfg.String())

	database, err := metadb.New(cfg.DBType, cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	stg := storage.New(database)

	settler := ledger.NewMemLedger()
	orchestrator, err := rounds.New(rounds.Config{
		Storage:       stg,
		Settler:       settler,
		Authority:     cfg.Authority,
		EscrowAccount: escrowAccount,
		ProposalFee:   cfg.ProposalFee,
	})
	if err != nil {
		log.Fatalf("failed to create orchestrator: %v", err)
	}
	orchestrator.SetEngine(mpc.NewSimEngine(stg, orchestrator.OnCallback))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roundService := service.NewRound(stg, orchestrator)
	apiService := service.NewAPI(orchestrator, cfg.ListenHost, cfg.ListenPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return roundService.Start(gctx) })
	g.Go(func() error { return apiService.Start(gctx) })
	if err := g.Wait(); err != nil {
		log.Fatalf("failed to start services: %v", err)
	}
	log.Infow("node ready",
		"host", cfg.ListenHost, "port", cfg.ListenPort, "ping", api.PingEndpoint)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infow("shutting down")
	apiService.Stop()
	roundService.Stop()
}
