package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khushi491/interview-buddy-sub000/internal/advance"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
)

const openingTimeout = 60 * time.Second

// StartRequest carries what a client knows when it starts an interview.
type StartRequest struct {
	Position       string `json:"position"`
	InterviewType  string `json:"interviewType"`
	Modality       string `json:"modality"`
	Difficulty     string `json:"difficulty"`
	CVText         string `json:"cvText"`
	JobDescription string `json:"jobDescription"`
	// Transport labels the started counter, e.g. "http" or "telegram".
	Transport string `json:"-"`
}

func (r *StartRequest) normalize() error {
	r.Position = strings.TrimSpace(r.Position)
	r.InterviewType = strings.TrimSpace(r.InterviewType)
	r.Modality = strings.ToLower(strings.TrimSpace(r.Modality))
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))

	if r.Position == "" {
		return fmt.Errorf("%w: position is required", ErrInvalidRequest)
	}
	switch r.Modality {
	case "":
		r.Modality = ModalityText
	case ModalityText, ModalityVoice, ModalityVideo:
	default:
		return fmt.Errorf("%w: unknown modality %q", ErrInvalidRequest, r.Modality)
	}
	if r.Transport == "" {
		r.Transport = "http"
	}
	return nil
}

// Manager keeps the live sessions.
type Manager struct {
	deps *Dependencies
	gate advance.Gate
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager fills missing dependencies with defaults. Sessions idle longer than ttl
// are evicted by RunCleanup.
func NewManager(deps Dependencies, ttl time.Duration) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Manager{
		deps:     &deps,
		gate:     deps.Config.NewGate(),
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Start creates a session and asks the opening question.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	if req.InterviewType == "" {
		req.InterviewType = m.deps.Config.InterviewConfig.DefaultFlow
	}
	if _, ok := m.deps.Config.Flows[req.InterviewType]; !ok {
		return nil, fmt.Errorf("%w: unknown interview type %q", ErrInvalidRequest, req.InterviewType)
	}
	flow, err := m.deps.Config.BuildFlow(req.InterviewType, req.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	st := interview.NewState(flow, interview.Candidate{
		Position:       req.Position,
		InterviewType:  req.InterviewType,
		CVText:         req.CVText,
		JobDescription: req.JobDescription,
	},
		interview.WithClock(m.deps.Now),
		interview.WithDetector(m.deps.Interviewer.Detector()),
		interview.WithTimeCeiling(m.deps.Config.TimeCeiling()),
		interview.WithMinSectionResponses(m.deps.Config.MinSectionResponses()),
	)

	s := newSession(uuid.NewString(), req.Modality, st, m.deps, m.gate)

	openCtx, cancel := context.WithTimeout(ctx, openingTimeout)
	defer cancel()
	if err := s.open(openCtx); err != nil {
		return nil, err
	}

	s.armDeadline(m.deps.Config.TimeCeiling())

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.deps.Recorder.IncrementInterviewsStarted(req.Transport)
	m.deps.Recorder.SetActiveSessions(n)
	s.logger.Info("interview started",
		"position", req.Position,
		"interview_type", req.InterviewType,
		"modality", req.Modality,
		"sections", flow.Len(),
		"transport", req.Transport,
	)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Record returns the stored interview, preferring the live session.
func (m *Manager) Record(ctx context.Context, id string) (*storage.InterviewRecord, error) {
	if s, err := m.Get(id); err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.recordLocked(), nil
	}
	if m.deps.Store == nil {
		return nil, ErrSessionNotFound
	}
	rec, err := m.deps.Store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return rec, err
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunCleanup evicts idle sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanupInactiveSessions()
		}
	}
}

func (m *Manager) cleanupInactiveSessions() int {
	cutoff := m.deps.Now().Add(-m.ttl)

	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastActivity.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range evicted {
		s.stop()
		m.deps.Writer.Forget(s.id)
		s.logger.Info("session evicted", "idle_for", m.ttl)
	}
	if len(evicted) > 0 {
		m.deps.Recorder.SetActiveSessions(n)
	}
	return len(evicted)
}

// Shutdown stops all timers and stores a last snapshot of every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.stop()
		s.mu.Lock()
		rec := s.recordLocked()
		s.mu.Unlock()
		s.submit(rec)
	}
}
