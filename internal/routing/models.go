// Package routing computes shortest walking paths over the road graph and
// synthesizes turn-by-turn instructions.
package routing

import (
	"errors"
	"time"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
)

// Sentinel errors for route computation.
var (
	// ErrNoPath indicates the graph is disconnected between the snapped
	// endpoints. Reported distinctly, never degraded into a partial route.
	ErrNoPath = errors.New("no connected road path between the given points")

	// ErrInvalidInput indicates the request coordinates are unusable.
	ErrInvalidInput = errors.New("invalid route input")
)

// ErrorKind discriminates route-query failures for the API boundary.
type ErrorKind string

const (
	// KindOutOfBounds means an endpoint lies outside the covered area.
	KindOutOfBounds ErrorKind = "OUT_OF_BOUNDS"
	// KindTooFarFromRoad means an endpoint could not be snapped to any road.
	KindTooFarFromRoad ErrorKind = "TOO_FAR_FROM_ROAD"
	// KindNoPath means no connected path exists between the endpoints.
	KindNoPath ErrorKind = "NO_PATH"
	// KindInvalidInput means the request itself was malformed.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
)

// Error is a discriminated routing failure. Endpoint identifies which side
// of the request failed to snap, when that is the cause.
type Error struct {
	Kind     ErrorKind
	Endpoint string // "start" or "end", empty when not endpoint-specific
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from an error chain, or empty if the error
// is not a routing failure.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// Instruction is one turn-by-turn direction, anchored to the path coordinate
// at which it becomes current for progress tracking.
type Instruction struct {
	// Text is the spoken/displayed direction.
	Text string

	// Location is the anchor coordinate. It lies exactly on the path.
	Location geo.Point

	// PathIndex is the index of Location within the route path.
	PathIndex int
}

// Route is a computed walking route.
type Route struct {
	// Path is the ordered coordinate sequence, start to destination.
	Path []geo.Point

	// Roads holds the road name of each path edge; len(Roads) == len(Path)-1.
	Roads []string

	// Instructions are the ordered turn-by-turn directions. The final
	// instruction is the destination and has no onward location.
	Instructions []Instruction

	// TotalDistance is the summed edge weight in meters.
	TotalDistance float64

	// EstimatedTime assumes the configured walking speed.
	EstimatedTime time.Duration
}

// Destination returns the final path coordinate.
func (r *Route) Destination() geo.Point {
	return r.Path[len(r.Path)-1]
}
