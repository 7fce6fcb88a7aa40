package syncer

import (
	"context"

	"shielded-notes-go/internal/models"
)

// Submitter is the outbound chain-submission boundary. A sync pass hands it
// units of work per privacy level; the real implementation would build proofs
// and broadcast transactions.
type Submitter interface {
	// SubmitBatch pushes count units at the given level toward the chain and
	// returns how many were accepted.
	SubmitBatch(ctx context.Context, level models.PrivacyLevel, count int) (int, error)
}

// SimulatedSubmitter accepts everything without touching a network. It stands
// in for the proof engine and broadcast layer during development and tests.
type SimulatedSubmitter struct{}

// SubmitBatch reports every unit as accepted.
func (SimulatedSubmitter) SubmitBatch(ctx context.Context, _ models.PrivacyLevel, count int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return count, nil
}
