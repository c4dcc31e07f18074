package nav

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/routing"
)

// eventBuffer bounds the session event channel. Slow subscribers lose
// events; the session never blocks on them.
const eventBuffer = 64

// SessionConfig holds configuration for a guidance session.
type SessionConfig struct {
	// Route is the route to guide along.
	Route *routing.Route

	// Announcer is the serialized speech queue for this session.
	Announcer *Announcer

	// Logger for session diagnostics.
	Logger zerolog.Logger

	// Tuning overrides the default thresholds when non-zero.
	Tuning *Tuning
}

// Session is the guidance state machine for one route. Position updates are
// applied one at a time under a mutex; progress is derived from projecting
// each fix onto the route geometry, so out-of-order sensor delivery cannot
// move the user backwards.
type Session struct {
	route  *routing.Route
	ann    *Announcer
	logger zerolog.Logger
	tuning Tuning

	// cumulative[i] is the arc length in meters from the path start to
	// path vertex i.
	cumulative []float64

	mu           sync.Mutex
	state        State
	current      int // index into route.Instructions
	traveled     float64
	warned       bool // advance warning fired for the current instruction
	arrivalTimer *time.Timer
	closed       bool

	events chan Event
	done   chan struct{}
}

// NewSession creates a session in the idle state. Guidance arms once a
// usable fix lands within the proximity lock distance of the route.
func NewSession(cfg SessionConfig) (*Session, error) {
	tuning := DefaultTuning()
	if cfg.Tuning != nil {
		tuning = *cfg.Tuning
	}
	if err := tuning.Validate(); err != nil {
		return nil, err
	}

	cumulative := make([]float64, len(cfg.Route.Path))
	for i := 1; i < len(cfg.Route.Path); i++ {
		cumulative[i] = cumulative[i-1] + geo.Distance(cfg.Route.Path[i-1], cfg.Route.Path[i])
	}

	return &Session{
		route:      cfg.Route,
		ann:        cfg.Announcer,
		logger:     cfg.Logger,
		tuning:     tuning,
		cumulative: cumulative,
		state:      StateIdle,
		events:     make(chan Event, eventBuffer),
		done:       make(chan struct{}),
	}, nil
}

// Events returns the session's event stream. The channel closes when the
// session ends (arrival teardown or cancellation).
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the session has fully ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current guidance state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current tracking progress.
func (s *Session) Snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		CurrentInstruction: s.current,
		DistanceTraveledM:  s.traveled,
		OffRoute:           s.state == StateOffRoute,
	}
}

// OnPositionUpdate applies one sensor reading to the state machine. Invalid
// readings are discarded. Safe for concurrent use; updates are serialized.
func (s *Session) OnPositionUpdate(u PositionUpdate) {
	p := u.Point()
	if !p.Valid() || math.IsNaN(u.AccuracyM) || u.AccuracyM < 0 {
		s.logger.Debug().
			Float64("lat", u.Lat).Float64("lon", u.Lon).Float64("accuracy_m", u.AccuracyM).
			Msg("discarding invalid position update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateArrived {
		return
	}

	deviation, along := s.project(p)
	usable := u.AccuracyM <= s.tuning.MaxUsableAccuracyM

	if s.state == StateIdle {
		if usable && deviation <= s.tuning.ProximityLockM {
			s.transition(StateGuiding)
			if len(s.route.Instructions) > 0 {
				s.say(s.route.Instructions[0].Text, true, true)
			}
		}
		// Before the lock trips, nothing else is tracked; a distant fix
		// while walking toward the start must stay silent.
		return
	}

	// Progress tracking keeps working even on poor-accuracy fixes, as long
	// as the fix reconciles against the route, and never moves backwards.
	if deviation <= s.tuning.TrackingTolerance(u.AccuracyM) && along > s.traveled {
		s.traveled = along
	}

	if usable {
		threshold := s.tuning.OffRouteThreshold(u.AccuracyM)
		switch {
		case s.state == StateGuiding && deviation > threshold:
			s.transition(StateOffRoute)
			s.say("You are off route. Please return to the highlighted path.", true, true)
		case s.state == StateOffRoute && deviation <= threshold:
			s.transition(StateGuiding)
			s.say("You are back on route.", true, true)
		}
	}

	if s.state == StateGuiding {
		s.advance(p, usable)
	}

	s.emit(Event{Type: EventProgress, Progress: &Progress{
		CurrentInstruction: s.current,
		DistanceTraveledM:  s.traveled,
		OffRoute:           s.state == StateOffRoute,
	}})
}

// project returns the minimum distance from p to the route geometry and the
// arc length along the path at the closest point.
func (s *Session) project(p geo.Point) (deviation, along float64) {
	best := math.Inf(1)
	bestAlong := 0.0
	path := s.route.Path
	for i := 0; i < len(path)-1; i++ {
		closest, t := geo.ClosestOnSegment(p, path[i], path[i+1])
		d := geo.Distance(p, closest)
		if d < best {
			best = d
			bestAlong = s.cumulative[i] + t*(s.cumulative[i+1]-s.cumulative[i])
		}
	}
	if len(path) == 1 {
		best = geo.Distance(p, path[0])
	}
	return best, bestAlong
}

// advance handles arrival, instruction advancement and the advance warning.
// Called with the mutex held, in StateGuiding.
func (s *Session) advance(p geo.Point, usable bool) {
	if !usable {
		return
	}

	if geo.Distance(p, s.route.Destination()) <= s.tuning.ArrivalRadiusM {
		s.arrive()
		return
	}

	next := s.current + 1
	if next >= len(s.route.Instructions) {
		return
	}
	d := geo.Distance(p, s.route.Instructions[next].Location)

	switch {
	case d <= s.tuning.AdvanceRadiusM:
		s.current = next
		s.warned = false
		s.say(s.route.Instructions[next].Text, true, true)
	case !s.warned && d > s.tuning.AdvanceWarnNearM && d <= s.tuning.AdvanceWarnFarM:
		// The warning preempts queued speech: played late, it is worse than
		// useless. The warned flag keeps it exactly-once, so dedup stays on.
		s.warned = true
		s.say(warningText(d, s.route.Instructions[next].Text), true, false)
	}
}

// arrive fires the arrival announcement once and schedules teardown after
// the grace period. Called with the mutex held.
func (s *Session) arrive() {
	s.transition(StateArrived)
	s.say("You have arrived at your destination.", true, true)
	s.emit(Event{Type: EventArrived, State: StateArrived})
	s.arrivalTimer = time.AfterFunc(s.tuning.ArrivalGrace, s.teardown)
}

func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state = StateIdle
	close(s.events)
	close(s.done)
}

// Cancel ends the session immediately: pending speech is flushed, the
// terminal event is emitted and the event stream closes. Idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.arrivalTimer != nil {
		s.arrivalTimer.Stop()
	}
	s.ann.Flush()
	s.closed = true
	s.state = StateIdle
	s.emit(Event{Type: EventCancelled, State: StateIdle})
	close(s.events)
	close(s.done)
}

// transition records a state change and emits the corresponding event.
// Called with the mutex held.
func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	s.logger.Info().Stringer("from", from).Stringer("to", to).Msg("guidance state change")
	s.emit(Event{Type: EventStateChange, State: to})
}

// say enqueues speech and mirrors it on the event stream. Forced speech
// bypasses the announcer's dedup window; state transitions already guarantee
// exactly-once, and advancing back onto a same-named road must still speak.
func (s *Session) say(text string, priority, forced bool) {
	if forced {
		s.ann.SpeakForced(text, priority)
	} else {
		s.ann.Speak(text, priority)
	}
	s.emit(Event{Type: EventAnnouncement, Announcement: &Announcement{Text: text, Priority: priority}})
}

// emit delivers an event without ever blocking the position handler.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Str("type", string(ev.Type)).Msg("event dropped, subscriber too slow")
	}
}

// warningText phrases the advance warning, rounding distance to the nearest
// 5 meters so consecutive warnings read stably.
func warningText(distanceM float64, instruction string) string {
	rounded := int(math.Round(distanceM/5)) * 5
	return fmt.Sprintf("In %d meters, %s", rounded, lowerFirst(instruction))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
