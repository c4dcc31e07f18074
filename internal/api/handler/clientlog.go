package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/api/models"
	"github.com/nasrdanavi/nasrdanavi/internal/api/response"
)

// maxClientLogLen caps each ingested message after sanitization.
const maxClientLogLen = 1000

// sensitiveParamPattern matches credential-bearing query parameters inside
// URLs that clients echo into their log messages.
var sensitiveParamPattern = regexp.MustCompile(`(?i)([?&](?:token|key|secret|password|auth|access_token|api_key)=)[^&\s]+`)

// ClientLogHandler ingests device-side log batches into the service log.
type ClientLogHandler struct {
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewClientLogHandler creates a new ClientLogHandler.
func NewClientLogHandler(logger zerolog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		logger:   logger.With().Str("source", "client").Logger(),
		validate: validator.New(),
	}
}

// Ingest handles POST /v1/logs.
func (h *ClientLogHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var batch models.ClientLogBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		response.BadRequest(w, r, "malformed JSON body", nil)
		return
	}
	if err := h.validate.Struct(&batch); err != nil {
		response.BadRequest(w, r, "invalid log batch", validationErrors(err))
		return
	}

	for _, entry := range batch.Entries {
		event := h.logger.WithLevel(clientLevel(entry.Level))
		if ctx := sanitizeLogMessage(entry.Context); ctx != "" {
			event = event.Str("client_context", ctx)
		}
		event.Msg(sanitizeLogMessage(entry.Message))
	}

	response.Accepted(w, r, models.ClientLogAccepted{Accepted: len(batch.Entries)})
}

func clientLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// sanitizeLogMessage strips control characters so client-supplied text
// cannot forge log records, redacts credential-bearing URL parameters, and
// truncates oversized messages.
func sanitizeLogMessage(msg string) string {
	var b strings.Builder
	b.Grow(len(msg))
	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := sensitiveParamPattern.ReplaceAllString(b.String(), "$1[redacted]")
	if len(out) > maxClientLogLen {
		out = out[:maxClientLogLen] + "... [truncated]"
	}
	return out
}
