// Package api exposes every caller-facing operation of the voting protocol
// over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sealedvote/sealedvote/rounds"
	"go.vocdoni.io/dvote/log"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host         string
	Port         int
	Orchestrator *rounds.Orchestrator
}

// API type represents the API HTTP server.
type API struct {
	router       *chi.Mux
	orchestrator *rounds.Orchestrator
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Orchestrator == nil {
		return nil, fmt.Errorf("missing orchestrator instance")
	}
	a := &API{
		orchestrator: conf.Orchestrator,
	}

	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes.
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})
	a.router.Post(RoundsEndpoint, a.openRound)
	a.router.Get(CurrentRoundEndpoint, a.currentRound)
	a.router.Get(RoundEndpoint, a.round)
	a.router.Post(ProposalsEndpoint, a.submitProposal)
	a.router.Get(ProposalsEndpoint, a.listProposals)
	a.router.Get(ProposalEndpoint, a.proposal)
	a.router.Post(VotesEndpoint, a.castVote)
	a.router.Post(ReissueEndpoint, a.reissueVote)
	a.router.Post(RevealEndpoint, a.requestReveal)
	a.router.Post(ArchiveEndpoint, a.archive)
	a.router.Post(RetryEndpoint, a.forceRetry)
	a.router.Get(ReceiptEndpoint, a.receipt)
	a.router.Post(VerifyEndpoint, a.verifyWinningVote)
	a.router.Post(DecryptEndpoint, a.decryptVote)
	a.router.Get(HistoriesEndpoint, a.listHistory)
	a.router.Get(HistoryEndpoint, a.history)
	a.router.Get(EscrowEndpoint, a.escrow)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
