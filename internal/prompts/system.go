package prompts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/pagination"
)

// System manages the overrides and resolves the effective prompt.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Override], error)
	Find(ctx context.Context, id uuid.UUID) (*Override, error)
	Create(ctx context.Context, cmd CreateCommand) (*Override, error)
	// Activate makes id the active override, deactivating the previous one.
	Activate(ctx context.Context, id uuid.UUID) (*Override, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Override, error)
	// Delete removes an inactive override. Active overrides return ErrActive.
	Delete(ctx context.Context, id uuid.UUID) error

	Effective(ctx context.Context) (Effective, error)
}
