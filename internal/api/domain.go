package api

import (
	"fmt"

	"github.com/JaimeStill/horarium/internal/config"
	"github.com/JaimeStill/horarium/internal/index"
	"github.com/JaimeStill/horarium/internal/janitor"
	"github.com/JaimeStill/horarium/internal/matching"
	"github.com/JaimeStill/horarium/internal/parsing"
	"github.com/JaimeStill/horarium/internal/prompts"
	"github.com/JaimeStill/horarium/internal/pruning"
	"github.com/JaimeStill/horarium/internal/recurrence"
	"github.com/JaimeStill/horarium/internal/scheduling"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Prompts    prompts.System
	Prunings   pruning.System
	Parsings   parsing.System
	Matchings  matching.System
	Index      index.System
	Scheduling scheduling.System
	Janitor    *janitor.Janitor
}

// NewDomain creates all domain systems from the API runtime and registers
// the scheduling stages on the task queue.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	promptsSystem := prompts.New(db, runtime.Logger, runtime.Pagination)

	prunings := pruning.New(db, nil, runtime.Logger)

	parsings := parsing.New(
		db,
		newOracle(cfg, promptsSystem, runtime),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	matchings := matching.New(db, runtime.Logger)
	indexSystem := index.New(db, runtime.Location, runtime.Logger)

	engine := recurrence.NewEngine(cfg.Pipeline.Zone(), cfg.Pipeline.Lookback)
	store := scheduling.NewStore(db, runtime.Logger, runtime.Pagination)

	machine, err := scheduling.NewMachine(
		&scheduling.Runtime{
			Store:            store,
			Queue:            runtime.Queue,
			Extractor:        pruning.NewHTMLExtractor(runtime.Logger),
			Prunings:         prunings,
			Parsings:         parsings,
			Matcher:          matching.NewProximityMatcher(),
			Matchings:        matchings,
			Materializer:     index.NewMaterializer(engine, cfg.Pipeline.Horizon, cfg.Pipeline.DefaultDurationValue()),
			ParseConcurrency: cfg.Pipeline.ParseConcurrency,
			Location:         runtime.Location,
			Pagination:       runtime.Pagination,
			Logger:           runtime.Logger,
		},
		runtime.Telemetry.Tracer("horarium/scheduling"),
		runtime.Telemetry.Meter("horarium/scheduling"),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduling: %w", err)
	}
	machine.Register(runtime.Queue)

	jan, err := janitor.New(&cfg.Janitor, store, machine, parsings, runtime.Location, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("janitor: %w", err)
	}

	return &Domain{
		Prompts:    promptsSystem,
		Prunings:   prunings,
		Parsings:   parsings,
		Matchings:  matchings,
		Index:      indexSystem,
		Scheduling: machine,
		Janitor:    jan,
	}, nil
}

func newOracle(cfg *config.Config, ps prompts.System, runtime *Runtime) parsing.Oracle {
	if cfg.Oracle.Kind == config.OracleDisabled {
		runtime.Logger.Warn("parsing oracle disabled, texts await human output")
		return parsing.DisabledOracle{}
	}

	return parsing.NewAgentOracle(
		cfg.Agent,
		ps,
		parsing.OracleOptions{
			RatePerSecond:    cfg.Oracle.RatePerSecond,
			Burst:            cfg.Oracle.Burst,
			BreakerFailures:  cfg.Oracle.BreakerFailures,
			BreakerOpenDelay: cfg.Oracle.BreakerOpenDelayDuration(),
		},
		runtime.Logger,
	)
}
