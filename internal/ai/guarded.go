package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"ragchat/internal/logger"
	"ragchat/internal/model"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("generation backend unavailable")

// Provider is a text-generation backend.
type Provider interface {
	Generate(ctx context.Context, modelID, prompt string) (string, error)
	ListModels(ctx context.Context) ([]model.LLMModel, error)
}

type GuardOptions struct {
	Name          string
	RatePerSecond float64
	Burst         int
	// Failures within Interval needed to open the circuit.
	MaxFailures uint32
	Interval    time.Duration
	OpenTimeout time.Duration
}

// Guarded wraps a Provider with a rate limiter and a circuit breaker.
// Calls are never retried.
type Guarded struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
}

func NewGuarded(provider Provider, opts GuardOptions) *Guarded {
	if opts.Name == "" {
		opts.Name = "llm"
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 60 * time.Second
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	maxFailures := opts.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    opts.Interval,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Guarded{
		provider: provider,
		breaker:  breaker,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func (g *Guarded) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.provider.Generate(ctx, modelID, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

// ListModels bypasses the breaker; listing failures do not count against
// generation.
func (g *Guarded) ListModels(ctx context.Context) ([]model.LLMModel, error) {
	return g.provider.ListModels(ctx)
}

func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}
