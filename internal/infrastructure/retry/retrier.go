package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

// Classifier reports whether an error is worth another attempt.
type Classifier func(error) bool

// Retrier implements usecase.Retrier with exponential backoff.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	retryable       Classifier
	logger          zerolog.Logger
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithMaxRetries sets how many retries follow the first attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithIntervals sets the backoff bounds.
func WithIntervals(initial, maxInterval, elapsed time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = initial
		r.maxInterval = maxInterval
		r.maxElapsedTime = elapsed
	}
}

// WithClassifier replaces the default domain.IsRetryable classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Retrier) { r.retryable = c }
}

// WithLogger sets the logger used to report retried attempts.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Retrier) { r.logger = logger }
}

// NewRetrier creates a new Retrier with default settings.
func NewRetrier(opts ...Option) *Retrier {
	r := &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  10 * time.Second,
		retryable:       domain.IsRetryable,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry executes an operation with exponential backoff on retryable errors.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	retryCount := 0

	err := backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !r.retryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.logger.Warn().Err(err).Int("retry", retryCount).Msg("retryable error, retrying")

		return err
	}, backoff.WithContext(b, ctx))

	return err
}
