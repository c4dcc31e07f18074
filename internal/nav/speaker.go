package nav

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrSpeechUnavailable is returned when the speech device circuit is open.
// Guidance keeps running; announcements are dropped rather than blocking
// the position handler.
var ErrSpeechUnavailable = errors.New("speech output unavailable")

// ResilientSpeakerConfig holds configuration for the resilient speech wrapper.
type ResilientSpeakerConfig struct {
	// Speaker is the underlying speech device.
	Speaker Speaker

	// Logger for failure diagnostics.
	Logger zerolog.Logger

	// MaxRetries per utterance on transient failures (default: 2).
	MaxRetries uint64

	// InitialInterval is the initial retry backoff (default: 100ms).
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff (default: 1s).
	MaxInterval time.Duration

	// OpenTimeout is how long the circuit stays open after tripping
	// (default: 30s).
	OpenTimeout time.Duration
}

// ResilientSpeaker wraps a speech device with retry and a circuit breaker.
// A flaky device gets a couple of quick retries; a dead one opens the
// circuit so sessions stop waiting on speech entirely.
type ResilientSpeaker struct {
	inner  Speaker
	logger zerolog.Logger
	cb     *gobreaker.CircuitBreaker[struct{}]
	cfg    ResilientSpeakerConfig
}

// NewResilientSpeaker wraps the given speech device.
func NewResilientSpeaker(cfg ResilientSpeakerConfig) *ResilientSpeaker {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = time.Second
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "speech-output",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &ResilientSpeaker{
		inner:  cfg.Speaker,
		logger: cfg.Logger,
		cb:     cb,
		cfg:    cfg,
	}
}

// Speak speaks through the circuit breaker, retrying transient failures
// with exponential backoff. Context cancellation (a priority interrupt) is
// never retried and never counts against the circuit.
func (r *ResilientSpeaker) Speak(ctx context.Context, text string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.InitialInterval
	bo.MaxInterval = r.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	operation := func() error {
		_, err := r.cb.Execute(func() (struct{}, error) {
			err := r.inner.Speak(ctx, text)
			if errors.Is(err, context.Canceled) {
				// Interrupts are expected operation, not device failure.
				return struct{}{}, nil
			}
			return struct{}{}, err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrSpeechUnavailable)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, r.cfg.MaxRetries), ctx))
	if errors.Is(err, ErrSpeechUnavailable) {
		r.logger.Warn().Str("text", text).Msg("speech circuit open, announcement dropped")
	}
	return err
}

// CircuitState reports the breaker state, for ops visibility.
func (r *ResilientSpeaker) CircuitState() gobreaker.State {
	return r.cb.State()
}
