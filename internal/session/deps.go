// Package session owns live interviews: one State, one advance Controller and the
// transcript per interview, shared by the HTTP and Telegram transports.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/advance"
	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
	"github.com/khushi491/interview-buddy-sub000/internal/api"
	"github.com/khushi491/interview-buddy-sub000/internal/config"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/interviewer"
	"github.com/khushi491/interview-buddy-sub000/internal/prompts"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
	"github.com/khushi491/interview-buddy-sub000/internal/transition"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInterviewEnded     = errors.New("interview has ended")
	ErrBusy               = errors.New("section advance in progress")
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrInvalidRequest     = errors.New("invalid request")
)

// Interviewer produces interviewer turns.
type Interviewer interface {
	BuildInput(st *interview.State, modality string) prompts.InterviewerInput
	Ask(ctx context.Context, in prompts.InterviewerInput, history []api.Message, instruction string) (interviewer.Turn, error)
	Detector() *transition.Detector
}

// Analyzer grades a transcript. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, interviewID string, in prompts.GradingInput) analysis.Analysis
}

// Persister queues snapshots for ordered storage.
type Persister interface {
	Submit(rec *storage.InterviewRecord) (int64, error)
	// Forget releases per-interview bookkeeping once a session is evicted.
	Forget(id string)
}

// Reader loads stored interviews that are no longer in memory.
type Reader interface {
	Get(ctx context.Context, id string) (*storage.InterviewRecord, error)
}

// Recorder receives session counters.
type Recorder interface {
	IncrementInterviewsStarted(transport string)
	IncrementInterviewsCompleted()
	IncrementSectionAdvance(trigger string)
	SetActiveSessions(n int)
}

type Dependencies struct {
	Config      *config.Config
	Interviewer Interviewer
	Analyzer    Analyzer
	Writer      Persister
	Store       Reader
	Recorder    Recorder
	Logger      *slog.Logger

	// Now and Scheduler are replaced in tests.
	Now       func() time.Time
	Scheduler advance.Scheduler
}

type nopRecorder struct{}

func (nopRecorder) IncrementInterviewsStarted(string) {}
func (nopRecorder) IncrementInterviewsCompleted()     {}
func (nopRecorder) IncrementSectionAdvance(string)    {}
func (nopRecorder) SetActiveSessions(int)             {}
