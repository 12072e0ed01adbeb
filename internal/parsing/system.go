package parsing

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/pagination"
)

// System defines the public contract for parsing operations.
type System interface {
	Handler() *Handler

	// Ensure returns the cached parsing of prunedText against roster, asking
	// the oracle when none exists yet.
	Ensure(ctx context.Context, prunedText string, roster Roster) (*Parsing, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Parsing], error)

	Find(ctx context.Context, id uuid.UUID) (*Parsing, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]Parsing, error)

	// Validate accepts the effective output and closes every moderation.
	Validate(ctx context.Context, id uuid.UUID) (*Parsing, error)
	SetHumanOutput(ctx context.Context, id uuid.UUID, cmd SetHumanCommand) (*Parsing, error)

	// CleanupModerations removes moderations of parsings that no live
	// scheduling run references anymore.
	CleanupModerations(ctx context.Context) (int64, error)

	// Archive opens the raw oracle response stored for a parsing.
	Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
