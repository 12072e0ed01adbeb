package pruning

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for pruning operations.
type System interface {
	Handler() *Handler

	// Ensure returns the pruning of lines, creating it when no pruning with
	// the same content hash exists.
	Ensure(ctx context.Context, lines []string) (*Pruning, error)
	Find(ctx context.Context, id uuid.UUID) (*Pruning, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]Pruning, error)
	SetHumanIndices(ctx context.Context, id uuid.UUID, cmd SetHumanCommand) (*Pruning, error)
}
