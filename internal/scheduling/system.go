package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/queue"
)

// System defines the public contract for scheduling runs.
type System interface {
	Handler() *Handler

	// Init creates a run for the website and triggers its first stage. It is
	// the only way work enters the pipeline.
	Init(ctx context.Context, websiteID uuid.UUID, opts InitOptions) (*Scheduling, error)

	Find(ctx context.Context, id uuid.UUID) (*Scheduling, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Scheduling], error)

	// Run executes one stage task.
	Run(ctx context.Context, task queue.Task) error
	// Register routes the stage kinds of q to Run.
	Register(q queue.System)
}

func (m *Machine) Handler() *Handler {
	return NewHandler(m, m.rt.Logger, m.rt.Pagination)
}

func (m *Machine) Find(ctx context.Context, id uuid.UUID) (*Scheduling, error) {
	return m.rt.Store.Find(ctx, id)
}

func (m *Machine) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Scheduling], error) {
	return m.rt.Store.List(ctx, page, filters)
}
