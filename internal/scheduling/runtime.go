package scheduling

import (
	"log/slog"
	"time"

	"github.com/JaimeStill/horarium/internal/index"
	"github.com/JaimeStill/horarium/internal/matching"
	"github.com/JaimeStill/horarium/internal/parsing"
	"github.com/JaimeStill/horarium/internal/pruning"
	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/queue"
)

// Runtime bundles the dependencies that stages require.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Store        Store
	Queue        queue.Enqueuer
	Extractor    pruning.Extractor
	Prunings     pruning.System
	Parsings     parsing.System
	Matcher      matching.LocationMatcher
	Matchings    matching.System
	Materializer *index.Materializer

	// ParseConcurrency bounds the oracle calls of one parse stage.
	ParseConcurrency int
	// Location is the zone whose calendar day starts the index window.
	Location *time.Location
	Now      func() time.Time

	Pagination pagination.Config
	Logger     *slog.Logger
}

func (rt *Runtime) today() time.Time {
	now := time.Now
	if rt.Now != nil {
		now = rt.Now
	}
	loc := rt.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now().In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// taskContext carries one stage execution: the run it acts on and the
// buffered task logger.
type taskContext struct {
	*Runtime
	run    *Scheduling
	logger *slog.Logger
}
