package models

// ClientLogEntry is one log record reported by a client device.
type ClientLogEntry struct {
	Level   string `json:"level" validate:"required,oneof=debug info warn error"`
	Message string `json:"message" validate:"required,max=2000"`
	Context string `json:"context,omitempty" validate:"max=200"`
}

// ClientLogBatch is the POST /v1/logs payload.
type ClientLogBatch struct {
	Entries []ClientLogEntry `json:"entries" validate:"required,min=1,max=100,dive"`
}

// ClientLogAccepted acknowledges an ingested batch.
type ClientLogAccepted struct {
	Accepted int `json:"accepted"`
}
