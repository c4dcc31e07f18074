package nav

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/routing"
)

// testRoute runs ~222m due east along the equator, with instruction anchors
// at each vertex. At this latitude 0.001 degrees of longitude is ~111m.
func testRoute() *routing.Route {
	path := []geo.Point{
		{Lon: 0, Lat: 0},
		{Lon: 0.001, Lat: 0},
		{Lon: 0.002, Lat: 0},
	}
	return &routing.Route{
		Path:  path,
		Roads: []string{"Main Street", "North Avenue"},
		Instructions: []routing.Instruction{
			{Text: "Head east on Main Street.", Location: path[0], PathIndex: 0},
			{Text: "Continue on Main Street for 111 meters, then turn right onto North Avenue.", Location: path[1], PathIndex: 1},
			{Text: "Continue on North Avenue for 111 meters to arrive at your destination.", Location: path[2], PathIndex: 2},
		},
		TotalDistance: geo.Distance(path[0], path[1]) + geo.Distance(path[1], path[2]),
	}
}

func newTestSession(t *testing.T, tuning *Tuning) (*Session, *recordingSpeaker) {
	t.Helper()
	spk := &recordingSpeaker{}
	ann := NewAnnouncer(AnnouncerConfig{Speaker: spk, Logger: zerolog.Nop()})
	t.Cleanup(ann.Close)

	s, err := NewSession(SessionConfig{
		Route:     testRoute(),
		Announcer: ann,
		Logger:    zerolog.Nop(),
		Tuning:    tuning,
	})
	require.NoError(t, err)
	return s, spk
}

// fix is a shorthand for a position update with good accuracy.
func fix(lon, lat float64) PositionUpdate {
	return PositionUpdate{Lon: lon, Lat: lat, AccuracyM: 10}
}

// drainAnnouncements empties the event channel and returns announcement texts.
func drainAnnouncements(s *Session) []string {
	var texts []string
	for _, a := range drainAnnouncementEvents(s) {
		texts = append(texts, a.Text)
	}
	return texts
}

// drainAnnouncementEvents empties the event channel and returns the
// announcements with their priority flags.
func drainAnnouncementEvents(s *Session) []Announcement {
	var out []Announcement
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			if ev.Type == EventAnnouncement {
				out = append(out, *ev.Announcement)
			}
		default:
			return out
		}
	}
}

func TestSession_ScriptedWalk(t *testing.T) {
	s, _ := newTestSession(t, nil)

	// 200m from the route: the proximity lock has not tripped, nothing
	// is announced even though the user is clearly not on the path.
	s.OnPositionUpdate(fix(0.0005, 0.0018))
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, drainAnnouncements(s))

	// 10m from the start: guidance locks on and the first instruction
	// is spoken.
	s.OnPositionUpdate(fix(0.0001, 0.00009))
	assert.Equal(t, StateGuiding, s.State())
	assert.Equal(t, []string{"Head east on Main Street."}, drainAnnouncements(s))

	// 80m off the path: exactly one off-route announcement, repeated
	// deviating fixes stay silent.
	s.OnPositionUpdate(fix(0.0003, 0.00072))
	s.OnPositionUpdate(fix(0.00031, 0.00073))
	s.OnPositionUpdate(fix(0.00032, 0.00072))
	assert.Equal(t, StateOffRoute, s.State())
	assert.Equal(t, []string{"You are off route. Please return to the highlighted path."}, drainAnnouncements(s))

	// Back within 10m of the path: exactly one recovery announcement.
	s.OnPositionUpdate(fix(0.0003, 0.00009))
	s.OnPositionUpdate(fix(0.00031, 0.00008))
	assert.Equal(t, StateGuiding, s.State())
	assert.Equal(t, []string{"You are back on route."}, drainAnnouncements(s))
}

func TestSession_PoorAccuracyNeverDrivesTransitions(t *testing.T) {
	s, _ := newTestSession(t, nil)

	// A wildly inaccurate fix near the start must not arm guidance.
	s.OnPositionUpdate(PositionUpdate{Lon: 0.0001, Lat: 0.00005, AccuracyM: 150})
	assert.Equal(t, StateIdle, s.State())

	s.OnPositionUpdate(fix(0.0001, 0.00005))
	require.Equal(t, StateGuiding, s.State())
	drainAnnouncements(s)

	// 80m deviation reported at 150m accuracy: stay on route.
	s.OnPositionUpdate(PositionUpdate{Lon: 0.0003, Lat: 0.00072, AccuracyM: 150})
	assert.Equal(t, StateGuiding, s.State())
	assert.Empty(t, drainAnnouncements(s))
}

func TestSession_RelaxedThresholdAtModerateAccuracy(t *testing.T) {
	s, _ := newTestSession(t, nil)

	s.OnPositionUpdate(fix(0.0001, 0.00005))
	require.Equal(t, StateGuiding, s.State())
	drainAnnouncements(s)

	// ~40m deviation: beyond the normal 35m threshold but inside the 50m
	// relaxed one, which applies because accuracy is worse than 50m.
	s.OnPositionUpdate(PositionUpdate{Lon: 0.0003, Lat: 0.00036, AccuracyM: 60})
	assert.Equal(t, StateGuiding, s.State())

	// Same deviation with sharp accuracy trips the normal threshold.
	s.OnPositionUpdate(fix(0.0003, 0.00036))
	assert.Equal(t, StateOffRoute, s.State())
}

func TestSession_AdvanceWarningThenAdvance(t *testing.T) {
	s, _ := newTestSession(t, nil)

	s.OnPositionUpdate(fix(0.00001, 0))
	require.Equal(t, StateGuiding, s.State())
	drainAnnouncements(s)

	// ~50m before the next anchor: one advance warning, not repeated, and it
	// preempts queued speech like any other guidance cue.
	s.OnPositionUpdate(fix(0.00055, 0))
	s.OnPositionUpdate(fix(0.00056, 0))
	warnings := drainAnnouncementEvents(s)
	require.Len(t, warnings, 1)
	assert.Equal(t, "In 50 meters, continue on Main Street for 111 meters, then turn right onto North Avenue.", warnings[0].Text)
	assert.True(t, warnings[0].Priority, "advance warning must be announced with priority")

	// Within 25m of the anchor: the instruction advances and is spoken.
	s.OnPositionUpdate(fix(0.00082, 0))
	got := drainAnnouncements(s)
	require.Len(t, got, 1)
	assert.Equal(t, "Continue on Main Street for 111 meters, then turn right onto North Avenue.", got[0])
	assert.Equal(t, 1, s.Snapshot().CurrentInstruction)
}

func TestSession_ArrivalAnnouncedOnceThenTearsDown(t *testing.T) {
	tuning := DefaultTuning()
	tuning.ArrivalGrace = 20 * time.Millisecond
	s, _ := newTestSession(t, &tuning)

	s.OnPositionUpdate(fix(0.00001, 0))
	require.Equal(t, StateGuiding, s.State())
	drainAnnouncements(s)

	// Walk to within the arrival radius of the destination.
	s.OnPositionUpdate(fix(0.00199, 0))
	require.Equal(t, StateArrived, s.State())

	// Further fixes are ignored after arrival.
	s.OnPositionUpdate(fix(0.002, 0))
	s.OnPositionUpdate(fix(0.0005, 0.0018))

	var arrived, arrivalTexts int
	for ev := range s.Events() {
		if ev.Type == EventArrived {
			arrived++
		}
		if ev.Type == EventAnnouncement && ev.Announcement.Text == "You have arrived at your destination." {
			arrivalTexts++
		}
	}
	assert.Equal(t, 1, arrived)
	assert.Equal(t, 1, arrivalTexts)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session never tore down after the arrival grace period")
	}
}

func TestSession_CancelStopsEverything(t *testing.T) {
	s, spk := newTestSession(t, nil)

	s.OnPositionUpdate(fix(0.0001, 0.00005))
	require.Equal(t, StateGuiding, s.State())
	require.Eventually(t, func() bool {
		return len(spk.spoken()) == 1
	}, time.Second, 5*time.Millisecond)

	s.Cancel()
	s.Cancel() // idempotent

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Cancel")
	}

	// Updates after cancellation are inert: no state change, no speech.
	before := len(spk.spoken())
	s.OnPositionUpdate(fix(0.0003, 0.00072))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateIdle, s.State())
	assert.Len(t, spk.spoken(), before)

	// The terminal event closes the stream.
	var cancelled bool
	for ev := range s.Events() {
		if ev.Type == EventCancelled {
			cancelled = true
		}
	}
	assert.True(t, cancelled)
}

func TestSession_ProgressIsMonotonic(t *testing.T) {
	s, _ := newTestSession(t, nil)

	s.OnPositionUpdate(fix(0.00001, 0))
	require.Equal(t, StateGuiding, s.State())

	s.OnPositionUpdate(fix(0.0005, 0))
	forward := s.Snapshot().DistanceTraveledM
	assert.InDelta(t, 55.7, forward, 2)

	// A stale fix behind the current progress must not move it backwards.
	s.OnPositionUpdate(fix(0.0002, 0))
	assert.Equal(t, forward, s.Snapshot().DistanceTraveledM)
}

func TestSession_DiscardsInvalidUpdates(t *testing.T) {
	s, _ := newTestSession(t, nil)

	s.OnPositionUpdate(PositionUpdate{Lon: 0.0001, Lat: 91, AccuracyM: 10})
	s.OnPositionUpdate(PositionUpdate{Lon: 0.0001, Lat: 0.00005, AccuracyM: -1})
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, drainAnnouncements(s))
}
