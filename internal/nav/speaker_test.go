package nav

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failNSpeaker fails the first n calls, then succeeds.
type failNSpeaker struct {
	mu    sync.Mutex
	n     int
	calls int
}

func (f *failNSpeaker) Speak(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.n {
		return errors.New("audio device busy")
	}
	return nil
}

func newTestResilientSpeaker(inner Speaker, retries uint64) *ResilientSpeaker {
	return NewResilientSpeaker(ResilientSpeakerConfig{
		Speaker:         inner,
		Logger:          zerolog.Nop(),
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
}

func TestResilientSpeaker_RetriesTransientFailure(t *testing.T) {
	inner := &failNSpeaker{n: 2}
	rs := newTestResilientSpeaker(inner, 2)

	require.NoError(t, rs.Speak(context.Background(), "turn left"))
	assert.Equal(t, 3, inner.calls)
}

func TestResilientSpeaker_OpensCircuitAfterRepeatedFailure(t *testing.T) {
	inner := &failNSpeaker{n: 1 << 30}
	rs := newTestResilientSpeaker(inner, 2)

	// Each call burns three attempts; two calls trip the five-consecutive
	// failure threshold.
	require.Error(t, rs.Speak(context.Background(), "one"))
	require.Error(t, rs.Speak(context.Background(), "two"))

	err := rs.Speak(context.Background(), "three")
	assert.ErrorIs(t, err, ErrSpeechUnavailable)

	// Open circuit means the device is no longer poked.
	before := inner.calls
	_ = rs.Speak(context.Background(), "four")
	assert.Equal(t, before, inner.calls)
}

func TestResilientSpeaker_InterruptIsNotAFailure(t *testing.T) {
	blocked := &blockingSpeaker{
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	rs := newTestResilientSpeaker(blocked, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rs.Speak(ctx, "interrupted mid-utterance")
	}()

	<-blocked.started
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Speak did not return after interrupt")
	}
	assert.Equal(t, gobreaker.StateClosed, rs.CircuitState())
}
