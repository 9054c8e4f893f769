package service

import (
	"context"
	"sync"
	"time"

	"pdf-signer/internal/domain"

	"github.com/google/uuid"
)

// Session is one user's signing workspace: the uploaded document and its placements.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Placements *PlacementStore

	mu       sync.RWMutex
	document *domain.DocumentInfo
	pdf      []byte
	lastSeen time.Time
}

// Document returns the current document and its cached bytes, nil when none has
// been uploaded.
func (s *Session) Document() (*domain.DocumentInfo, []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document, s.pdf
}

// setDocument replaces the document. Placements belong to the previous document and
// are dropped.
func (s *Session) setDocument(info *domain.DocumentInfo, pdf []byte) {
	s.mu.Lock()
	s.document = info
	s.pdf = pdf
	s.mu.Unlock()
	s.Placements.Reset()
}

// View returns the session as served to clients.
func (s *Session) View() domain.SessionView {
	doc, _ := s.Document()
	return domain.SessionView{
		ID:         s.ID,
		Document:   doc,
		Placements: s.Placements.Snapshot(),
		CreatedAt:  s.CreatedAt,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// SessionService keeps sessions in memory and expires idle ones.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   domain.Logger
	now      func() time.Time
}

// NewSessionService creates a registry. A ttl of zero disables expiry.
func NewSessionService(ttl time.Duration, logger domain.Logger) *SessionService {
	return &SessionService{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts an empty session.
func (s *SessionService) Create() *Session {
	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now.UTC(),
		Placements: NewPlacementStore(),
		lastSeen:   now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("Session created", "session_id", sess.ID)
	return sess
}

// Get returns a session and marks it as recently used.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete removes a session.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Len reports the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many went.
func (s *SessionService) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("Expired idle sessions", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}

// StartJanitor sweeps every interval until ctx is cancelled. Each tick also runs
// the extra housekeeping funcs, which keep running when session expiry is disabled.
func (s *SessionService) StartJanitor(ctx context.Context, interval time.Duration, housekeeping ...func()) {
	if interval <= 0 || (s.ttl <= 0 && len(housekeeping) == 0) {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
				for _, fn := range housekeeping {
					fn()
				}
			}
		}
	}()
}
