// Package api provides the gRPC EditorService: editing sessions over the
// condition-tree controller, draft persistence and the remote save/test calls.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/editor"
	"github.com/solatis/rulebuilder/internal/types"
)

// RuleService is the remote save/test collaborator.
type RuleService interface {
	Save(ctx context.Context, cc types.CatalogContext, root *types.Group) (string, error)
	Test(ctx context.Context, cc types.CatalogContext, root *types.Group) (json.RawMessage, error)
}

// DraftRepository stores local revisions of rule trees.
type DraftRepository interface {
	Save(ctx context.Context, cc types.CatalogContext, root *types.Group) (db.Draft, error)
	Latest(ctx context.Context, cc types.CatalogContext) (db.Draft, error)
}

// Options configures an EditorService.
type Options struct {
	// Drafts is optional; without it Open starts from the request tree or empty.
	Drafts DraftRepository
	// Rules is optional; without it Save only stores a draft and Test fails.
	Rules       RuleService
	MaxSessions int
	Logger      *slog.Logger
}

type session struct {
	ctrl     *editor.Controller
	lastUsed time.Time
}

// EditorService implements EditorServer.
// Thin orchestration layer delegating to editor, catalog, db and remote.
type EditorService struct {
	attrs       editor.Attributes
	ops         editor.Operators
	drafts      DraftRepository
	rules       RuleService
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[types.SessionID]*session
}

// NewEditorService creates service instance with dependencies.
func NewEditorService(attrs editor.Attributes, ops editor.Operators, opts Options) (*EditorService, error) {
	if attrs == nil {
		return nil, fmt.Errorf("attrs cannot be nil")
	}
	if ops == nil {
		return nil, fmt.Errorf("ops cannot be nil")
	}
	if opts.MaxSessions <= 0 {
		return nil, fmt.Errorf("max sessions must be positive, got %d", opts.MaxSessions)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EditorService{
		attrs:       attrs,
		ops:         ops,
		drafts:      opts.Drafts,
		rules:       opts.Rules,
		maxSessions: opts.MaxSessions,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[types.SessionID]*session),
	}, nil
}

// Sessions returns the number of open sessions.
func (s *EditorService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *EditorService) addSession(ctrl *editor.Controller) (types.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		return "", fmt.Errorf("%w (limit %d)", types.ErrTooManySessions, s.maxSessions)
	}
	id := types.NewSessionID()
	s.sessions[id] = &session{ctrl: ctrl, lastUsed: s.now()}
	sessionsOpen.Set(float64(len(s.sessions)))
	return id, nil
}

// session looks up an open session and marks it used.
func (s *EditorService) session(raw string) (types.SessionID, *editor.Controller, error) {
	id, err := types.ParseSessionID(raw)
	if err != nil {
		return "", nil, fmt.Errorf("session %q: %w", raw, types.ErrSessionNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return "", nil, fmt.Errorf("session %s: %w", id, types.ErrSessionNotFound)
	}
	sess.lastUsed = s.now()
	return id, sess.ctrl, nil
}

func (s *EditorService) closeSession(id types.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	sessionsOpen.Set(float64(len(s.sessions)))
	return ok
}

// Expire closes sessions idle for longer than maxIdle and returns how many it closed.
func (s *EditorService) Expire(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	closed := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			closed++
		}
	}
	sessionsOpen.Set(float64(len(s.sessions)))
	if closed > 0 {
		s.logger.Info("Expired idle editing sessions", "closed", closed, "open", len(s.sessions))
	}
	return closed
}

// RunExpiry calls Expire every interval until ctx is done.
func (s *EditorService) RunExpiry(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Expire(maxIdle)
		}
	}
}
