package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamdir.dev/internal/view"
)

// DirectoryService maps page sessions to their view controllers
type DirectoryService struct {
	source  view.Source
	dataURL string
	opts    view.Options
	sched   view.Scheduler
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	controller *view.Controller
	lastSeen   time.Time
}

// DirectoryConfig holds what a DirectoryService needs to start page sessions
type DirectoryConfig struct {
	Source    view.Source
	DataURL   string
	Options   view.Options
	Scheduler view.Scheduler
	TTL       time.Duration
	Logger    *zap.Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(cfg DirectoryConfig) *DirectoryService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		source:   cfg.Source,
		dataURL:  cfg.DataURL,
		opts:     cfg.Options,
		sched:    cfg.Scheduler,
		ttl:      cfg.TTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Session returns the controller for id, starting a new page session when id
// is unknown or expired. A session whose load failed is replaced so the page
// view fetches the dataset again. The returned id is the one to hand back to
// the client.
func (s *DirectoryService) Session(ctx context.Context, id string) (string, *view.Controller) {
	s.mu.Lock()
	s.sweepLocked()
	if sess, ok := s.sessions[id]; ok {
		if sess.controller.Snapshot().Status != view.StatusFailed {
			sess.lastSeen = s.now()
			s.mu.Unlock()
			return id, sess.controller
		}
		sess.controller.Close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	id = uuid.NewString()
	controller := view.NewController(s.opts, s.sched, s.logger.With(zap.String("session", id)))
	// Load failure is reflected in the controller status
	_ = controller.Start(ctx, s.source, s.dataURL)

	s.mu.Lock()
	s.sessions[id] = &session{controller: controller, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug("Started page session", zap.String("session", id))
	return id, controller
}

// Lookup returns the controller for an existing session
func (s *DirectoryService) Lookup(id string) (*view.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.controller, true
}

// Count returns the number of live sessions
func (s *DirectoryService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and drops idle sessions
func (s *DirectoryService) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
}

// Close shuts down every session
func (s *DirectoryService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.controller.Close()
		delete(s.sessions, id)
	}
}

func (s *DirectoryService) sweepLocked() {
	for id, sess := range s.sessions {
		if s.expired(sess) {
			sess.controller.Close()
			delete(s.sessions, id)
		}
	}
}

func (s *DirectoryService) expired(sess *session) bool {
	return s.ttl > 0 && s.now().Sub(sess.lastSeen) > s.ttl
}
