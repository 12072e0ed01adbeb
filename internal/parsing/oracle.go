package parsing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/horarium/internal/prompts"
	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/pkg/formatting"
)

// Result is what an oracle returns for one pruned text. A failed call sets
// ErrorDetail and leaves Schedules nil.
type Result struct {
	Schedules   *schedule.SchedulesList
	ErrorDetail string
	Provider    string
	Model       string
	Raw         string
}

// Oracle extracts schedules from pruned text. Provider failures are reported
// through Result.ErrorDetail; a returned error means the call was abandoned
// and nothing must be recorded.
type Oracle interface {
	Parse(ctx context.Context, prunedText string, roster Roster) (Result, error)
}

// OracleOptions bound the rate and failure behavior of AgentOracle.
type OracleOptions struct {
	RatePerSecond    float64
	Burst            int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// AgentOracle asks a language model through go-agents. Calls are rate
// limited and guarded by a circuit breaker so a failing provider is not
// hammered by every parse task.
type AgentOracle struct {
	agent   gaconfig.AgentConfig
	prompts prompts.System
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewAgentOracle(
	cfg gaconfig.AgentConfig,
	ps prompts.System,
	opts OracleOptions,
	logger *slog.Logger,
) *AgentOracle {
	logger = logger.With("oracle", "agent")

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := max(opts.Burst, 1)

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "oracle",
		Timeout: opts.BreakerOpenDelay,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &AgentOracle{
		agent:   cfg,
		prompts: ps,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		logger:  logger,
	}
}

func (o *AgentOracle) Parse(ctx context.Context, prunedText string, roster Roster) (Result, error) {
	res := Result{
		Provider: o.providerName(),
		Model:    o.modelName(),
	}

	prompt, err := ComposePrompt(ctx, o.prompts, prunedText, roster)
	if err != nil {
		return res, err
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return res, err
	}

	out, err := o.breaker.Execute(func() (any, error) {
		a, err := agent.New(&o.agent)
		if err != nil {
			return nil, fmt.Errorf("create agent: %w", err)
		}
		resp, err := a.Chat(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("chat call: %w", err)
		}
		return resp.Content(), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// No call was made; recording an error would cache it for this text.
			return res, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
		}
		res.ErrorDetail = err.Error()
		return res, nil
	}

	res.Raw = out.(string)
	list, err := formatting.Parse[schedule.SchedulesList](res.Raw)
	if err != nil {
		res.ErrorDetail = err.Error()
		return res, nil
	}
	list.Schedules = schedule.Deduplicate(list.Schedules)
	res.Schedules = &list

	return res, nil
}

func (o *AgentOracle) providerName() string {
	if o.agent.Provider == nil {
		return ""
	}
	return o.agent.Provider.Name
}

func (o *AgentOracle) modelName() string {
	if o.agent.Model == nil {
		return ""
	}
	return o.agent.Model.Name
}

// ComposePrompt joins the effective instructions, the response format, the
// church roster and the text to parse.
func ComposePrompt(ctx context.Context, ps prompts.System, prunedText string, roster Roster) (string, error) {
	eff, err := ps.Effective(ctx)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(eff.Instructions)
	sb.WriteString("\n\n")
	sb.WriteString(eff.ResponseFormat)
	sb.WriteString("\n\nChurches:\n\n")
	sb.WriteString(roster.Describe())
	sb.WriteString("\n\nText:\n\n")
	sb.WriteString(prunedText)

	return sb.String(), nil
}

// DisabledOracle records every text as unparsed. It keeps the pipeline
// running when no model is configured; moderators fill in human outputs.
type DisabledOracle struct{}

func (DisabledOracle) Parse(ctx context.Context, prunedText string, roster Roster) (Result, error) {
	return Result{
		ErrorDetail: "oracle disabled",
		Provider:    "disabled",
		Model:       "none",
	}, nil
}
