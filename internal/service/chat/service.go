package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/chat"
	"github.com/zhouzirui/healthcare-site/backend/internal/service/ai"
	"github.com/zhouzirui/healthcare-site/backend/internal/widget"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrProviderMissing = errors.New("ai provider is not configured")
)

type entry struct {
	session chat.Session
	widget  *widget.Widget
}

// Service keeps the mounted widgets, one per visitor session.
type Service struct {
	provider ai.Provider
	logger   *zap.Logger
	idleTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService bootstraps the in-memory registry. A zero idleTTL disables expiry.
func NewService(provider ai.Provider, idleTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		logger:   logger,
		idleTTL:  idleTTL,
		sessions: make(map[string]*entry),
	}
}

// Provider returns the provider every widget talks to, or nil.
func (s *Service) Provider() ai.Provider {
	return s.provider
}

// CreateSession mounts a fresh widget.
func (s *Service) CreateSession(_ context.Context) (chat.Session, *widget.Widget, error) {
	if s.provider == nil {
		return chat.Session{}, nil, ErrProviderMissing
	}

	now := time.Now().UTC()
	session := chat.Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}
	w := widget.New(session.ID, s.provider, s.logger)

	s.mu.Lock()
	s.sessions[session.ID] = &entry{session: session, widget: w}
	s.mu.Unlock()

	s.logger.Debug("widget session created", zap.String("session", session.ID))
	return session, w, nil
}

// GetWidget retrieves a mounted widget by session identifier.
func (s *Service) GetWidget(_ context.Context, sessionID string) (*widget.Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.widget, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	session := e.session
	session.LastActive = e.widget.LastActive().UTC()
	return session, nil
}

// CloseSession unmounts the widget and forgets the session.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.widget.Close()
	return nil
}

// Len reports how many sessions are mounted.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes widgets idle since before now-idleTTL and returns how many went.
// Widgets with a send in flight are kept.
func (s *Service) Sweep(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}

	var expired []*entry
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.widget.Pending() || now.Sub(e.widget.LastActive()) < s.idleTTL {
			continue
		}
		expired = append(expired, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.widget.Close()
		s.logger.Debug("widget session expired", zap.String("session", e.session.ID))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes every remaining widget.
func (s *Service) Run(ctx context.Context) {
	defer s.Shutdown()

	if s.idleTTL <= 0 {
		<-ctx.Done()
		return
	}

	interval := s.idleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.logger.Info("expired idle widget sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown closes every mounted widget.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range sessions {
		e.widget.Close()
	}
}
