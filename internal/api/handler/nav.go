package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/api/models"
	"github.com/nasrdanavi/nasrdanavi/internal/api/response"
	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/nav"
	"github.com/nasrdanavi/nasrdanavi/internal/routing"
)

// NavHandler serves live guidance sessions. The client pushes position fixes
// over HTTP and observes guidance output on a server-sent event stream; the
// spoken announcements ride that stream as events.
type NavHandler struct {
	routes   *routing.Service
	manager  *nav.Manager
	logger   zerolog.Logger
	validate *validator.Validate

	mu      sync.Mutex
	sources map[string]*pushSource
}

// NewNavHandler creates a new NavHandler.
func NewNavHandler(routes *routing.Service, manager *nav.Manager, logger zerolog.Logger) *NavHandler {
	return &NavHandler{
		routes:   routes,
		manager:  manager,
		logger:   logger,
		validate: validator.New(),
		sources:  make(map[string]*pushSource),
	}
}

// pushSource adapts HTTP-pushed fixes to the position source port.
type pushSource struct {
	ch chan nav.PositionUpdate
}

func (s *pushSource) Positions(context.Context) (<-chan nav.PositionUpdate, error) {
	return s.ch, nil
}

// push hands a fix to the session without ever blocking the HTTP handler.
// Under burst the oldest queued fix is the right one to lose.
func (s *pushSource) push(u nav.PositionUpdate) {
	for {
		select {
		case s.ch <- u:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// eventStreamSpeaker satisfies the speech port for HTTP sessions. Speech is
// rendered client-side from the announcement events, so the server side is
// a no-op sink.
type eventStreamSpeaker struct{}

func (eventStreamSpeaker) Speak(context.Context, string) error { return nil }

// CreateSession handles POST /v1/navigation/sessions.
func (h *NavHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "malformed JSON body", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, r, "invalid session request", validationErrors(err))
		return
	}

	route, err := h.routes.CalculateRoute(r.Context(),
		geo.Point{Lon: req.Start.Lon, Lat: req.Start.Lat},
		geo.Point{Lon: req.End.Lon, Lat: req.End.Lat})
	if err != nil {
		WriteRoutingError(w, r, err)
		return
	}

	source := &pushSource{ch: make(chan nav.PositionUpdate, 32)}
	id, session, err := h.manager.Start(r.Context(), route, source, eventStreamSpeaker{})
	if err != nil {
		response.InternalError(w, r, "failed to start guidance session")
		return
	}

	h.mu.Lock()
	h.sources[id] = source
	h.mu.Unlock()
	go func() {
		<-session.Done()
		h.mu.Lock()
		delete(h.sources, id)
		h.mu.Unlock()
	}()

	response.Created(w, r, "/v1/navigation/sessions/"+id, models.SessionResponse{
		ID:    id,
		State: session.State().String(),
		Route: ToRouteResponse(route),
	})
}

// GetSession handles GET /v1/navigation/sessions/{sessionID}.
func (h *NavHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := h.manager.Get(id)
	if err != nil {
		response.NotFound(w, r, "no such guidance session")
		return
	}

	progress := session.Snapshot()
	response.JSON(w, r, http.StatusOK, models.SessionStatus{
		ID:                 id,
		State:              session.State().String(),
		CurrentInstruction: progress.CurrentInstruction,
		DistanceTraveledM:  progress.DistanceTraveledM,
		OffRoute:           progress.OffRoute,
	})
}

// PushPosition handles POST /v1/navigation/sessions/{sessionID}/position.
func (h *NavHandler) PushPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req models.PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "malformed JSON body", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, r, "invalid position fix", validationErrors(err))
		return
	}

	h.mu.Lock()
	source, ok := h.sources[id]
	h.mu.Unlock()
	if !ok {
		response.NotFound(w, r, "no such guidance session")
		return
	}

	source.push(nav.PositionUpdate{
		Lat:        req.Lat,
		Lon:        req.Lon,
		AccuracyM:  req.AccuracyM,
		HeadingDeg: req.HeadingDeg,
	})
	response.Accepted(w, r, nil)
}

// StreamEvents handles GET /v1/navigation/sessions/{sessionID}/events as a
// server-sent event stream. The stream ends when the session does.
func (h *NavHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := h.manager.Get(id)
	if err != nil {
		response.NotFound(w, r, "no such guidance session")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, r, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-session.Events():
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				h.logger.Debug().Err(err).Str("session_id", id).Msg("event stream write failed")
				return
			}
			flusher.Flush()
		}
	}
}

// CancelSession handles DELETE /v1/navigation/sessions/{sessionID}.
func (h *NavHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.manager.Cancel(id); err != nil {
		if errors.Is(err, nav.ErrSessionNotFound) {
			response.NotFound(w, r, "no such guidance session")
			return
		}
		response.InternalError(w, r, "failed to cancel session")
		return
	}
	response.NoContent(w, r)
}

func writeSSE(w http.ResponseWriter, ev nav.Event) error {
	model := models.SessionEvent{Type: string(ev.Type)}
	switch ev.Type {
	case nav.EventStateChange, nav.EventArrived, nav.EventCancelled:
		model.State = ev.State.String()
	case nav.EventAnnouncement:
		model.Text = ev.Announcement.Text
		model.Priority = ev.Announcement.Priority
	case nav.EventProgress:
		model.CurrentInstruction = &ev.Progress.CurrentInstruction
		model.DistanceTraveledM = &ev.Progress.DistanceTraveledM
		model.OffRoute = &ev.Progress.OffRoute
	}

	data, err := json.Marshal(model)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + string(ev.Type) + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}
	return nil
}

// validationErrors converts validator output to field errors.
func validationErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: "failed " + fe.Tag() + " validation",
			Code:    fe.Tag(),
		})
	}
	return out
}
