package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/capture"
	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/metrics"
	"github.com/kdimtricp/popscan/internal/models"
	"github.com/kdimtricp/popscan/internal/ocr"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultSessionTTL = 15 * time.Minute
	updatesBuffer     = 100
)

type ManagerConfig struct {
	Scanner  ocr.Scanner
	Provider metadata.Provider
	Timeline []PhaseStep
	// SessionTTL is how long an idle session is kept after its last activity.
	SessionTTL time.Duration
	Logger     *zerolog.Logger
}

// Update is delivered to session subscribers.
type Update struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	UpdateEvent = "event"
	UpdateState = "state"
)

// Session is a scan session owned by a Manager.
type Session struct {
	ID        string
	CreatedAt time.Time

	controller *Controller
	logger     zerolog.Logger

	mu         sync.Mutex
	lastActive time.Time
	subs       map[chan Update]struct{}
	closed     bool
}

func (s *Session) State() State { return s.controller.State() }

// Start launches a scan in the background; false means one is already
// running.
func (s *Session) Start(ctx context.Context) bool {
	s.touch()
	return s.controller.Start(ctx)
}

func (s *Session) Reset() {
	s.touch()
	s.controller.Reset()
}

// Subscribe returns a channel of updates for the session and a function that
// releases it. Slow subscribers miss updates rather than block the scan. The
// channel is closed when the session is removed.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, updatesBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
			s.logger.Debug().Str(xlog.FieldEvent, u.Type).Msg("subscriber full, dropping update")
		}
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) close() {
	s.controller.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

// Manager holds scan sessions keyed by id.
type Manager struct {
	scanner  ocr.Scanner
	provider metadata.Provider
	timeline []PhaseStep
	ttl      time.Duration
	logger   zerolog.Logger

	// runs are detached from request contexts and end when the manager closes.
	ctx    context.Context
	cancel context.CancelFunc

	sessions   map[string]*Session
	sessionsMu sync.RWMutex
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Scanner == nil || cfg.Provider == nil {
		return nil, errors.New("scanner and provider are required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	logger := xlog.WithComponent("scan-manager")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		scanner:  cfg.Scanner,
		provider: cfg.Provider,
		timeline: cfg.Timeline,
		ttl:      cfg.SessionTTL,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}, nil
}

// Create registers a new session. A non-empty frame data URL is handed to
// the scanner; otherwise the session scans in demo mode.
func (m *Manager) Create(frame string) (*Session, error) {
	if m.ctx.Err() != nil {
		return nil, ErrClosed
	}

	now := time.Now()
	session := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		lastActive: now,
		subs:       make(map[chan Update]struct{}),
	}
	session.logger = m.logger.With().Str(xlog.FieldSessionID, session.ID).Logger()

	var frameFn capture.Func
	if frame != "" {
		frameFn = func(context.Context) (string, error) { return frame, nil }
	}

	controller, err := NewController(Options{
		Scanner:  m.scanner,
		Provider: m.provider,
		Capture:  frameFn,
		Timeline: m.timeline,
		Logger:   &session.logger,
		Notify: func(ev Event) {
			session.publish(Update{Type: UpdateEvent, Data: ev})
			session.publish(Update{Type: UpdateState, Data: session.State()})
		},
		OnComplete: func(results []models.MediaTitle) {
			session.logger.Info().Int(xlog.FieldResults, len(results)).Msg("session results ready")
		},
	})
	if err != nil {
		return nil, err
	}
	session.controller = controller

	m.sessionsMu.Lock()
	m.sessions[session.ID] = session
	m.sessionsMu.Unlock()
	metrics.ActiveSessions.Inc()

	session.logger.Info().Bool("has_frame", frame != "").Msg("session created")
	return session, nil
}

// StartScan starts a background scan in the session.
func (m *Manager) StartScan(id string) (*Session, error) {
	session, ok := m.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.Start(m.ctx) {
		return session, ErrScanInProgress
	}
	return session, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()

	session, ok := m.sessions[id]
	return session, ok
}

func (m *Manager) Len() int {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	return len(m.sessions)
}

// Delete removes the session and cancels its scan.
func (m *Manager) Delete(id string) error {
	m.sessionsMu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.sessionsMu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.close()
	metrics.ActiveSessions.Dec()
	session.logger.Info().Msg("session deleted")
	return nil
}

// Prune removes sessions that are not scanning and have been inactive for
// longer than the session TTL. It returns the number removed.
func (m *Manager) Prune(now time.Time) int {
	m.sessionsMu.Lock()
	var stale []*Session
	for id, session := range m.sessions {
		if session.State().IsScanning() {
			continue
		}
		if now.Sub(session.idleSince()) > m.ttl {
			stale = append(stale, session)
			delete(m.sessions, id)
		}
	}
	m.sessionsMu.Unlock()

	for _, session := range stale {
		session.close()
		metrics.ActiveSessions.Dec()
	}
	if len(stale) > 0 {
		m.logger.Info().Int("pruned", len(stale)).Msg("pruned idle sessions")
	}
	return len(stale)
}

// Run prunes idle sessions every interval until ctx is done or the manager
// is closed.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.Prune(now)
		}
	}
}

// Close cancels every running scan and drops all sessions.
func (m *Manager) Close() {
	m.cancel()

	m.sessionsMu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.sessionsMu.Unlock()

	for _, session := range sessions {
		session.close()
		metrics.ActiveSessions.Dec()
	}
}
