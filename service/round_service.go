package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sealedvote/sealedvote/rounds"
	"github.com/sealedvote/sealedvote/storage"
	"go.vocdoni.io/dvote/log"
)

// RoundService owns the orchestrator lifecycle. On start it bootstraps the
// genesis round when the store is empty, so a fresh node comes up with an
// open round ready to accept proposals.
type RoundService struct {
	stg          *storage.Storage
	orchestrator *rounds.Orchestrator
}

// NewRound creates a new RoundService instance.
func NewRound(stg *storage.Storage, orchestrator *rounds.Orchestrator) *RoundService {
	return &RoundService{
		stg:          stg,
		orchestrator: orchestrator,
	}
}

// Start bootstraps the genesis round if none exists yet. Restarts with an
// existing store are a no-op.
func (rs *RoundService) Start(ctx context.Context) error {
	current, err := rs.orchestrator.CurrentRound()
	switch {
	case err == nil:
		log.Infow("resuming existing round", "round", current.ID, "phase", current.Phase.String())
		return nil
	case errors.Is(err, storage.ErrNotFound):
		round, err := rs.orchestrator.OpenRound(ctx)
		if err != nil {
			return fmt.Errorf("failed to open genesis round: %w", err)
		}
		log.Infow("opened genesis round", "round", round.ID)
		return nil
	default:
		return fmt.Errorf("failed to load current round: %w", err)
	}
}

// Stop closes the underlying store.
func (rs *RoundService) Stop() {
	rs.stg.Close()
}
