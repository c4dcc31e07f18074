package models

// CreateSessionRequest starts a guidance session between two coordinates.
type CreateSessionRequest struct {
	Start Point `json:"start" validate:"required"`
	End   Point `json:"end" validate:"required"`
}

// SessionResponse describes a live guidance session.
type SessionResponse struct {
	ID    string        `json:"id"`
	State string        `json:"state"`
	Route RouteResponse `json:"route"`
}

// SessionStatus is the polled state of a session.
type SessionStatus struct {
	ID                 string  `json:"id"`
	State              string  `json:"state"`
	CurrentInstruction int     `json:"currentInstruction"`
	DistanceTraveledM  float64 `json:"distanceTraveledM"`
	OffRoute           bool    `json:"offRoute"`
}

// PositionRequest is one position fix pushed by the client.
type PositionRequest struct {
	Lat        float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lon        float64  `json:"lon" validate:"gte=-180,lte=180"`
	AccuracyM  float64  `json:"accuracyM" validate:"gte=0"`
	HeadingDeg *float64 `json:"headingDeg,omitempty" validate:"omitempty,gte=0,lt=360"`
}

// SessionEvent is one server-sent event on a session stream.
type SessionEvent struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`

	// Announcement fields, for type "announcement".
	Text     string `json:"text,omitempty"`
	Priority bool   `json:"priority,omitempty"`

	// Progress fields, for type "progress".
	CurrentInstruction *int     `json:"currentInstruction,omitempty"`
	DistanceTraveledM  *float64 `json:"distanceTraveledM,omitempty"`
	OffRoute           *bool    `json:"offRoute,omitempty"`
}
