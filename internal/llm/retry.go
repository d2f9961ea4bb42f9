package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"finsight-backend/config"
	"finsight-backend/internal/apperr"
)

// Completion is the outcome of Invoke. Err is nil exactly when Text holds a usable completion.
type Completion struct {
	Text     string
	Attempts int
	Err      error
}

func (c Completion) OK() bool {
	return c.Err == nil
}

// ModelClient is what the rest of the pipeline talks to. Invoke never panics and
// reports failure through Completion.Err.
type ModelClient interface {
	Invoke(ctx context.Context, prompt string) Completion
}

const defaultMaxAttempts = 3

type RetryingClient struct {
	gen         Generator
	maxAttempts int
	unit        time.Duration
	jitter      func() float64
	timer       backoff.Timer
}

type Option func(*RetryingClient)

// WithMaxAttempts sets the total number of calls, first attempt included.
func WithMaxAttempts(n int) Option {
	return func(c *RetryingClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffUnit scales the wait; the wait before retry n is (2^n + jitter) * unit.
func WithBackoffUnit(unit time.Duration) Option {
	return func(c *RetryingClient) {
		if unit > 0 {
			c.unit = unit
		}
	}
}

func WithJitter(f func() float64) Option {
	return func(c *RetryingClient) { c.jitter = f }
}

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(c *RetryingClient) { c.timer = t }
}

func NewRetryingClient(gen Generator, opts ...Option) *RetryingClient {
	c := &RetryingClient{
		gen:         gen,
		maxAttempts: defaultMaxAttempts,
		unit:        time.Second,
		jitter:      rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewModelClient builds the retrying client from configuration.
func NewModelClient(gen Generator, cfg *config.Config) ModelClient {
	return NewRetryingClient(gen,
		WithMaxAttempts(cfg.LLM.MaxAttempts),
		WithBackoffUnit(cfg.LLM.BackoffUnit),
	)
}

func (c *RetryingClient) Invoke(ctx context.Context, prompt string) (result Completion) {
	attempts := 0
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Model provider panicked")
			result = Completion{Attempts: attempts, Err: fmt.Errorf("%w: provider panic: %v", apperr.ErrPermanentProvider, r)}
		}
	}()

	var text string
	operation := func() error {
		attempts++
		out, err := c.gen.Generate(ctx, prompt)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(fmt.Errorf("%w: %v", apperr.ErrPermanentProvider, err))
			}
			return fmt.Errorf("%w: %v", apperr.ErrTransientProvider, err)
		}
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("%w: empty completion", apperr.ErrTransientProvider)
		}
		text = out
		return nil
	}

	var policy backoff.BackOff = &jitteredExponential{unit: c.unit, jitter: c.jitter}
	policy = backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1))
	policy = backoff.WithContext(policy, ctx)

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempts).Dur("wait", wait).Msg("Model call failed, retrying")
	}

	if err := backoff.RetryNotifyWithTimer(operation, policy, notify, c.timer); err != nil {
		if !errors.Is(err, apperr.ErrPermanentProvider) {
			err = fmt.Errorf("%w: gave up after %d attempts: %v", apperr.ErrPermanentProvider, attempts, err)
		}
		log.Error().Err(err).Int("attempts", attempts).Msg("Model call failed")
		return Completion{Attempts: attempts, Err: err}
	}
	return Completion{Text: text, Attempts: attempts}
}

// jitteredExponential yields (2^n + U[0,1)) * unit for the n-th wait, n starting at 0.
type jitteredExponential struct {
	unit   time.Duration
	jitter func() float64
	n      int
}

func (b *jitteredExponential) NextBackOff() time.Duration {
	wait := (math.Pow(2, float64(b.n)) + b.jitter()) * float64(b.unit)
	b.n++
	return time.Duration(wait)
}

func (b *jitteredExponential) Reset() {
	b.n = 0
}
