package auth

import (
	"context"

	"github.com/google/uuid"
)

// ActionLedger answers whether an actor already acted on a resource.
type ActionLedger interface {
	ExistsActionForPair(ctx context.Context, actorID, resourceID uuid.UUID) (bool, error)
}

// DuplicateActionGuard enforces at most one action record per
// (actor, resource) pair. The exists check is a fast path; the store's
// unique index is authoritative and must surface ErrDuplicateAction.
type DuplicateActionGuard struct {
	ledger ActionLedger
	logger Logger
}

// NewDuplicateActionGuard returns a guard over ledger.
func NewDuplicateActionGuard(ledger ActionLedger, logger Logger) *DuplicateActionGuard {
	if logger == nil {
		logger = defLogger{}
	}
	return &DuplicateActionGuard{ledger: ledger, logger: logger}
}

// Create runs create unless the pair already has a record.
func (g *DuplicateActionGuard) Create(ctx context.Context, actorID, resourceID uuid.UUID, create func(ctx context.Context) error) error {
	exists, err := g.ledger.ExistsActionForPair(ctx, actorID, resourceID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateAction(actorID, resourceID, nil)
	}

	if err := create(ctx); err != nil {
		if IsCode(err, TextCodeDuplicateAction) {
			g.logger.Info("duplicate action rejected by store", "actor", actorID.String(), "resource", resourceID.String())
			return duplicateAction(actorID, resourceID, err)
		}
		return err
	}
	return nil
}

func duplicateAction(actorID, resourceID uuid.UUID, source error) error {
	return WithDetails(ErrDuplicateAction, source, map[string]any{
		"actor":    actorID.String(),
		"resource": resourceID.String(),
	})
}
