package nav

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/routing"
)

// ErrSessionNotFound is returned when the session ID is unknown or the
// session has already ended.
var ErrSessionNotFound = errors.New("navigation session not found")

// ManagerConfig holds configuration for the session manager.
type ManagerConfig struct {
	// Logger for manager and per-session diagnostics.
	Logger zerolog.Logger

	// Tuning overrides the default thresholds for all sessions when set.
	Tuning *Tuning
}

// Manager owns the live guidance sessions: it wires each new session to its
// position source and speech device, pumps sensor updates into the state
// machine, and reaps sessions when they end.
type Manager struct {
	logger zerolog.Logger
	tuning *Tuning

	mu       sync.Mutex
	sessions map[string]*managed
}

type managed struct {
	session *Session
	ann     *Announcer
	cancel  context.CancelFunc
}

// NewManager creates an empty session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		logger:   cfg.Logger,
		tuning:   cfg.Tuning,
		sessions: make(map[string]*managed),
	}
}

// Start creates a guidance session for the route, subscribes to the position
// source and begins pumping updates. The returned ID addresses the session
// in later calls. The speech device is wrapped with retry and a circuit
// breaker so a failing device never stalls guidance.
//
// ctx gates setup only: session lifetime is deliberately decoupled from the
// caller's context, because a session must outlive the request that created
// it. The pump runs until arrival teardown, Cancel or Shutdown.
func (m *Manager) Start(ctx context.Context, route *routing.Route, source PositionSource, speaker Speaker) (string, *Session, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	logger := m.logger.With().Str("session_id", id).Logger()

	resilient := NewResilientSpeaker(ResilientSpeakerConfig{
		Speaker: speaker,
		Logger:  logger,
	})
	ann := NewAnnouncer(AnnouncerConfig{
		Speaker: resilient,
		Logger:  logger,
	})

	session, err := NewSession(SessionConfig{
		Route:     route,
		Announcer: ann,
		Logger:    logger,
		Tuning:    m.tuning,
	})
	if err != nil {
		ann.Close()
		return "", nil, err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.sessions[id] = &managed{session: session, ann: ann, cancel: cancel}
	m.mu.Unlock()

	go m.pump(pumpCtx, session, source, logger)
	go m.reap(id, session, ann, cancel)

	logger.Info().Int("instructions", len(route.Instructions)).Msg("navigation session started")
	return id, session, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.session, nil
}

// Cancel ends a session by ID.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	entry.session.Cancel()
	return nil
}

// Count returns the number of live sessions, for ops visibility.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown cancels every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	entries := make([]*managed, 0, len(m.sessions))
	for _, entry := range m.sessions {
		entries = append(entries, entry)
	}
	m.mu.Unlock()
	for _, entry := range entries {
		entry.session.Cancel()
	}
}

// pump forwards sensor updates into the session, resubscribing with
// exponential backoff when the source drops the subscription.
func (m *Manager) pump(ctx context.Context, session *Session, source PositionSource, logger zerolog.Logger) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0

	operation := func() error {
		updates, err := source.Positions(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			logger.Warn().Err(err).Msg("position subscription failed, retrying")
			return err
		}
		bo.Reset()
		for {
			select {
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			case u, ok := <-updates:
				if !ok {
					if ctx.Err() != nil {
						return backoff.Permanent(ctx.Err())
					}
					logger.Warn().Msg("position stream ended, resubscribing")
					return errors.New("position stream closed")
				}
				session.OnPositionUpdate(u)
			}
		}
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("position pump stopped")
	}
}

// reap waits for the session to end, then releases its resources.
func (m *Manager) reap(id string, session *Session, ann *Announcer, cancel context.CancelFunc) {
	<-session.Done()
	cancel()
	ann.Close()
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.logger.Info().Str("session_id", id).Msg("navigation session ended")
}
