package routing

import (
	"fmt"
	"math"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
)

// defaultMinLegMeters is the minimum edge length that produces a standalone
// instruction boundary. Shorter edges come from dense vertex sampling and are
// absorbed into a neighbor.
const defaultMinLegMeters = 2.0

// leg is a contiguous run of path edges treated as one unit by the
// instruction walk. Bearings are taken from the leg's own first and last
// edges, so absorbed micro-edges cannot inject spurious turns.
type leg struct {
	startIdx, endIdx int
	road             string
	dist             float64
	firstBearing     float64
	lastBearing      float64
}

// buildLegs converts path edges into legs, absorbing edges shorter than
// minLeg into their predecessor (or successor, for a short first edge).
func buildLegs(path []geo.Point, roads []string, minLeg float64) []leg {
	raw := make([]leg, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		b := geo.Bearing(path[i], path[i+1])
		raw = append(raw, leg{
			startIdx:     i,
			endIdx:       i + 1,
			road:         roads[i],
			dist:         geo.Distance(path[i], path[i+1]),
			firstBearing: b,
			lastBearing:  b,
		})
	}
	if len(raw) <= 1 {
		return raw
	}

	legs := make([]leg, 0, len(raw))
	for _, l := range raw {
		if len(legs) > 0 && l.dist < minLeg {
			p := &legs[len(legs)-1]
			p.dist += l.dist
			p.endIdx = l.endIdx
			continue
		}
		legs = append(legs, l)
	}

	if len(legs) > 1 && legs[0].dist < minLeg {
		legs[1].dist += legs[0].dist
		legs[1].startIdx = legs[0].startIdx
		legs = legs[1:]
	}

	return legs
}

// turnPhrase classifies a signed turn angle into the spoken phrase, or empty
// for "continue straight". Exactly 45 degrees is a slight turn and exactly
// 170 degrees is a sharp turn; beyond 170 is a U-turn.
func turnPhrase(angle float64) string {
	a := math.Abs(angle)
	right := angle > 0

	side := "left"
	if right {
		side = "right"
	}

	switch {
	case a < 45:
		return ""
	case a < 80:
		return "turn slightly " + side
	case a < 135:
		return "turn " + side
	case a <= 170:
		return "turn sharply " + side
	default:
		return "make a U-turn"
	}
}

// generateInstructions walks the path's legs and emits ordered turn-by-turn
// instructions. A boundary fires when the turn is not "continue straight" or
// when the road name changes; the distance accumulated since the previous
// boundary is attached to the emitted text, rounded to whole meters.
func generateInstructions(path []geo.Point, roads []string, minLeg float64) []Instruction {
	if len(path) < 2 {
		return nil
	}
	if minLeg <= 0 {
		minLeg = defaultMinLegMeters
	}

	legs := buildLegs(path, roads, minLeg)

	instructions := []Instruction{{
		Text:      fmt.Sprintf("Head %s on %s.", geo.Cardinal(legs[0].firstBearing), legs[0].road),
		Location:  path[0],
		PathIndex: 0,
	}}

	currentRoad := legs[0].road
	running := 0.0

	for i := range legs {
		running += legs[i].dist
		if i == len(legs)-1 {
			break
		}

		next := legs[i+1]
		phrase := turnPhrase(geo.TurnAngle(legs[i].lastBearing, next.firstBearing))
		if phrase == "" && next.road == currentRoad {
			continue
		}
		if phrase == "" {
			// A 0-degree joint onto a differently-named road still announces.
			phrase = "continue"
		}

		instructions = append(instructions, Instruction{
			Text: fmt.Sprintf("Continue on %s for %d meters, then %s onto %s.",
				currentRoad, int(math.Round(running)), phrase, next.road),
			Location:  path[legs[i].endIdx],
			PathIndex: legs[i].endIdx,
		})
		currentRoad = next.road
		running = 0
	}

	last := len(path) - 1
	meters := int(math.Round(running))
	text := "Arrive at your destination."
	if meters > 0 {
		text = fmt.Sprintf("Continue on %s for %d meters to arrive at your destination.", currentRoad, meters)
	}
	instructions = append(instructions, Instruction{
		Text:      text,
		Location:  path[last],
		PathIndex: last,
	})

	return instructions
}
