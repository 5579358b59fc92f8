package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"airbnbdash/server/internal/favorites"
	"airbnbdash/server/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Session is the state one dashboard user carries between requests: the
// last viewport reported by the map and the favorites shortlist.
type Session struct {
	ID        string
	CreatedAt time.Time
	Favorites *favorites.Store

	mu       sync.Mutex
	viewport *models.Viewport
	lastSeen time.Time
}

// UpdateViewport records the viewport and reports whether it differs from
// the previous one. Callers skip recomputation when it didn't change.
func (s *Session) UpdateViewport(v *models.Viewport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewport.Equal(v) {
		return false
	}
	if v == nil {
		s.viewport = nil
		return true
	}
	cp := *v
	s.viewport = &cp
	return true
}

// Viewport returns a copy of the last recorded viewport, nil if none.
func (s *Session) Viewport() *models.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewport == nil {
		return nil
	}
	cp := *s.viewport
	return &cp
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager is the registry of live sessions. Sessions idle for longer than
// the TTL are dropped by the sweeper.
type Manager struct {
	mu            sync.RWMutex
	sessions      map[string]*Session
	ttl           time.Duration
	sweepInterval time.Duration
	logger        *logrus.Logger
	now           func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a session registry. A zero ttl disables expiry.
func NewManager(ttl, sweepInterval time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Manager{
		sessions:      make(map[string]*Session),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// Create starts a new session with an empty, initialised favorites store.
func (m *Manager) Create() *Session {
	now := m.now()
	fav := favorites.NewStore()
	fav.EnsureInitialized()

	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Favorites: fav,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.WithField("session_id", s.ID).Debug("Session started")
	return s
}

// Get returns the session and marks it as active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// End discards the session and everything it holds.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.logger.WithField("session_id", id).Debug("Session ended")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"expired":   removed,
			"remaining": len(m.sessions),
		}).Info("Expired idle sessions")
	}
	return removed
}

// Start runs the idle sweeper in the background.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.runSweeper()
}

func (m *Manager) runSweeper() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Stop halts the sweeper and waits for it to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
}
