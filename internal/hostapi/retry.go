package hostapi

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
	"golang.org/x/time/rate"
)

// Retrier retries rate-limited calls. When the host says when the limit
// lifts, the Retrier sleeps until then plus MinWait; otherwise it falls back
// to exponential backoff with jitter.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	minWait         time.Duration
	limiter         *rate.Limiter
	logger          *utils.Logger
	now             func() time.Time
}

// RetrierOptions contains options for creating a Retrier
type RetrierOptions struct {
	// MaxRetries caps the number of retries. Zero retries forever.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// MinWait is added to every host-supplied wait
	MinWait time.Duration
	// RequestsPerSecond throttles every attempt. Zero is unthrottled.
	RequestsPerSecond float64
	Logger            *utils.Logger
}

// DefaultRetrierOptions returns default retrier options
func DefaultRetrierOptions() RetrierOptions {
	return RetrierOptions{
		MaxRetries:      10,
		InitialInterval: 1 * time.Second,
		MaxInterval:     60 * time.Second,
		Multiplier:      2.0,
		MinWait:         1 * time.Second,
	}
}

// NewRetrier creates a new Retrier with the given options
func NewRetrier(opts RetrierOptions) *Retrier {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 1 * time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 60 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	if opts.MinWait <= 0 {
		opts.MinWait = 1 * time.Second
	}

	return &Retrier{
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
		multiplier:      opts.Multiplier,
		minWait:         opts.MinWait,
		limiter:         newLimiter(opts.RequestsPerSecond),
		logger:          opts.Logger.OrNop().WithComponent("retrier"),
		now:             time.Now,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// hintedBackOff prefers a one-shot wait supplied by the host over the
// wrapped exponential schedule
type hintedBackOff struct {
	base backoff.BackOff
	hint time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.base.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if b.hint > 0 {
		next, b.hint = b.hint, 0
	}
	return next
}

func (b *hintedBackOff) Reset() {
	b.hint = 0
	b.base.Reset()
}

func (r *Retrier) newBackoff(ctx context.Context) (*hintedBackOff, backoff.BackOff) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.initialInterval
	exp.MaxInterval = r.maxInterval
	exp.Multiplier = r.multiplier
	exp.RandomizationFactor = 0.5
	exp.MaxElapsedTime = 0
	exp.Reset()

	hinted := &hintedBackOff{base: exp}
	var b backoff.BackOff = hinted
	if r.maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(r.maxRetries))
	}
	return hinted, backoff.WithContext(b, ctx)
}

// Do executes operation, retrying while it reports rate limiting
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	hinted, b := r.newBackoff(ctx)

	return backoff.RetryNotify(func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := operation()
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		var rl *domain.RateLimitError
		if errors.As(err, &rl) && (!rl.Reset.IsZero() || rl.RetryAfter > 0) {
			hinted.hint = rl.Wait(r.now(), r.minWait)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Dur("wait", wait).
			Msg("Rate limit exceeded, waiting before retry")
	})
}

// RetryWithValue executes an operation with rate-limit retries and returns its value
func RetryWithValue[T any](ctx context.Context, r *Retrier, operation func() (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}
