package nav

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// defaultCooldown is the dedup window: an identical text offered again
// within it is suppressed unless forced.
const defaultCooldown = 5 * time.Second

// AnnouncerConfig holds configuration for the announcement queue.
type AnnouncerConfig struct {
	// Speaker is the speech output port.
	Speaker Speaker

	// Logger for queue diagnostics.
	Logger zerolog.Logger

	// Cooldown is the dedup window (default: 5s).
	Cooldown time.Duration
}

// Announcer serializes speech output: one utterance audible at a time,
// strict FIFO for normal announcements, priority announcements interrupt
// whatever is in flight. Enqueueing never blocks the caller.
type Announcer struct {
	speaker  Speaker
	logger   zerolog.Logger
	cooldown time.Duration

	mu       sync.Mutex
	queue    []utterance
	lastText string
	lastAt   time.Time
	current  context.CancelFunc
	closed   bool

	wake chan struct{}
	done chan struct{}
}

type utterance struct {
	text     string
	priority bool
}

// NewAnnouncer creates the queue and starts its dispatch loop.
func NewAnnouncer(cfg AnnouncerConfig) *Announcer {
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = defaultCooldown
	}
	a := &Announcer{
		speaker:  cfg.Speaker,
		logger:   cfg.Logger,
		cooldown: cooldown,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

// Speak enqueues an announcement. A priority announcement cancels any
// in-flight and queued speech and plays immediately. Identical text within
// the cooldown window is suppressed.
func (a *Announcer) Speak(text string, priority bool) {
	a.enqueue(text, priority, false)
}

// SpeakForced is Speak without deduplication, for announcements that must
// repeat verbatim (e.g. re-speaking the current instruction on advance).
func (a *Announcer) SpeakForced(text string, priority bool) {
	a.enqueue(text, priority, true)
}

func (a *Announcer) enqueue(text string, priority, force bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	if !force && text == a.lastText && time.Since(a.lastAt) < a.cooldown {
		a.logger.Debug().Str("text", text).Msg("duplicate announcement suppressed")
		return
	}
	a.lastText = text
	a.lastAt = time.Now()

	if priority {
		a.queue = a.queue[:0]
		if a.current != nil {
			a.current()
		}
	}
	a.queue = append(a.queue, utterance{text: text, priority: priority})

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Flush drops all queued announcements and interrupts the one in flight.
func (a *Announcer) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = a.queue[:0]
	if a.current != nil {
		a.current()
	}
}

// Close flushes the queue and stops the dispatch loop. No announcement is
// spoken after Close returns.
func (a *Announcer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.queue = a.queue[:0]
	if a.current != nil {
		a.current()
	}
	a.mu.Unlock()
	close(a.done)
}

func (a *Announcer) run() {
	for {
		select {
		case <-a.done:
			return
		case <-a.wake:
		}

		for {
			a.mu.Lock()
			if a.closed || len(a.queue) == 0 {
				a.mu.Unlock()
				break
			}
			u := a.queue[0]
			a.queue = a.queue[1:]
			ctx, cancel := context.WithCancel(context.Background())
			a.current = cancel
			a.mu.Unlock()

			err := a.speaker.Speak(ctx, u.text)

			a.mu.Lock()
			a.current = nil
			a.mu.Unlock()
			cancel()

			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				a.logger.Debug().Str("text", u.text).Msg("utterance interrupted")
			default:
				a.logger.Warn().Err(err).Str("text", u.text).Msg("speech output failed")
			}
		}
	}
}
