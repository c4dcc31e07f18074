// Package nav drives live turn-by-turn guidance: it reconciles a noisy
// position stream against a computed route, detects deviation and arrival,
// and paces spoken announcements through a single-utterance queue.
//
// The position sensor and the speech output device are injected ports; the
// package never owns either.
package nav

import (
	"context"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
)

// State is the guidance state of a navigation session.
type State int

const (
	// StateIdle means no guidance is active (or the proximity lock has not
	// tripped yet after session start).
	StateIdle State = iota
	// StateGuiding means the user is on route and instructions advance.
	StateGuiding
	// StateOffRoute means the user has deviated beyond the off-route threshold.
	StateOffRoute
	// StateArrived means the destination has been reached.
	StateArrived
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGuiding:
		return "guiding"
	case StateOffRoute:
		return "off_route"
	case StateArrived:
		return "arrived"
	default:
		return "unknown"
	}
}

// PositionUpdate is one reading from the position sensor. Delivery order is
// not guaranteed to match wall clock; progress is derived from projection
// onto the route, never from update ordering.
type PositionUpdate struct {
	Lat        float64
	Lon        float64
	AccuracyM  float64
	HeadingDeg *float64 // optional
}

// Point returns the update's coordinate.
func (u PositionUpdate) Point() geo.Point {
	return geo.Point{Lon: u.Lon, Lat: u.Lat}
}

// PositionSource is the injected sensor port. Positions returns a channel of
// updates that closes when the subscription ends; a subscription failure is
// returned immediately so the caller can resubscribe.
type PositionSource interface {
	Positions(ctx context.Context) (<-chan PositionUpdate, error)
}

// Speaker is the injected speech output port. Speak blocks until the
// utterance finishes or ctx is cancelled (a priority interrupt).
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// EventType discriminates session events.
type EventType string

const (
	// EventAnnouncement reports a spoken announcement request.
	EventAnnouncement EventType = "announcement"
	// EventProgress reports updated tracking state.
	EventProgress EventType = "progress"
	// EventStateChange reports a guidance state transition.
	EventStateChange EventType = "state_change"
	// EventArrived is the terminal arrival event.
	EventArrived EventType = "arrived"
	// EventCancelled is the terminal cancellation event.
	EventCancelled EventType = "cancelled"
)

// Announcement is a speech request observable by subscribers.
type Announcement struct {
	Text     string
	Priority bool
}

// Progress is the observable tracking state after a position update.
type Progress struct {
	CurrentInstruction int
	DistanceTraveledM  float64
	OffRoute           bool
}

// Event is one observable side effect of a session.
type Event struct {
	Type         EventType
	State        State         // set for state_change
	Announcement *Announcement // set for announcement
	Progress     *Progress     // set for progress
}
