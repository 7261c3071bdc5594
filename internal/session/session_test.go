package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khushi491/interview-buddy-sub000/internal/advance"
	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
	"github.com/khushi491/interview-buddy-sub000/internal/api"
	"github.com/khushi491/interview-buddy-sub000/internal/config"
	"github.com/khushi491/interview-buddy-sub000/internal/interviewer"
	"github.com/khushi491/interview-buddy-sub000/internal/prompts"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
)

const testYAML = `
interview_config:
  default_flow: technical
  time_ceiling_minutes: 30
  min_section_responses: 4
flows:
  technical:
    sections:
      - {id: intro, title: Introduction, order: 1, duration_minutes: 5}
      - {id: coding, title: Coding, order: 2, duration_minutes: 10, focus_areas: [algorithms]}
auto_advance:
  delay_ms: 500
`

const longAnswer = "I built a queue-backed ingestion service in Go that handled retries."

type queueCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (c *queueCompleter) Complete(context.Context, []api.Message, api.Options) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "Tell me more about that.", nil
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r, nil
}

func (c *queueCompleter) push(replies ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

type fakeWriter struct {
	mu        sync.Mutex
	records   []*storage.InterviewRecord
	forgotten []string
}

func (w *fakeWriter) Forget(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forgotten = append(w.forgotten, id)
}

func (w *fakeWriter) Submit(rec *storage.InterviewRecord) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, rec)
	return int64(len(w.records)), nil
}

func (w *fakeWriter) last() *storage.InterviewRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.records) == 0 {
		return nil
	}
	return w.records[len(w.records)-1]
}

type fakeAnalyzer struct {
	inputs []prompts.GradingInput
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ string, in prompts.GradingInput) analysis.Analysis {
	a.inputs = append(a.inputs, in)
	return analysis.Analysis{Summary: "solid", Recommendation: analysis.Hire}
}

type fakeStore struct {
	records map[string]*storage.InterviewRecord
}

func (s *fakeStore) Get(_ context.Context, id string) (*storage.InterviewRecord, error) {
	if rec, ok := s.records[id]; ok {
		return rec, nil
	}
	return nil, storage.ErrNotFound
}

type countingRecorder struct {
	mu        sync.Mutex
	started   []string
	completed int
	advances  []string
	active    int
}

func (r *countingRecorder) IncrementInterviewsStarted(t string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, t)
}

func (r *countingRecorder) IncrementInterviewsCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *countingRecorder) IncrementSectionAdvance(t string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advances = append(r.advances, t)
}

func (r *countingRecorder) SetActiveSessions(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = n
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler keeps interview deadlines (a minute or longer) apart from
// auto-advance timers.
type manualScheduler struct {
	mu        sync.Mutex
	timers    []*manualTimer
	deadlines []*manualTimer
}

func (s *manualScheduler) schedule(d time.Duration, f func()) advance.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	if d >= time.Minute {
		s.deadlines = append(s.deadlines, t)
		return t
	}
	s.timers = append(s.timers, t)
	return t
}

// fire runs the most recent live timer and reports whether there was one.
func (s *manualScheduler) fire() bool {
	s.mu.Lock()
	var t *manualTimer
	if n := len(s.timers); n > 0 && !s.timers[n-1].stopped {
		t = s.timers[n-1]
	}
	s.mu.Unlock()
	if t == nil {
		return false
	}
	t.stopped = true
	t.f()
	return true
}

type fixture struct {
	manager   *Manager
	completer *queueCompleter
	writer    *fakeWriter
	analyzer  *fakeAnalyzer
	recorder  *countingRecorder
	sched     *manualScheduler
	now       time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T, yaml string) *fixture {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		completer: &queueCompleter{},
		writer:    &fakeWriter{},
		analyzer:  &fakeAnalyzer{},
		recorder:  &countingRecorder{},
		sched:     &manualScheduler{},
		now:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(Dependencies{
		Config:      cfg,
		Interviewer: interviewer.New(f.completer, cfg.NewDetector(), nil, logger),
		Analyzer:    f.analyzer,
		Writer:      f.writer,
		Store:       &fakeStore{records: map[string]*storage.InterviewRecord{}},
		Recorder:    f.recorder,
		Logger:      logger,
		Now:         f.clock,
		Scheduler:   f.sched.schedule,
	}, time.Hour)
	return f
}

func (f *fixture) start(t *testing.T) *Session {
	t.Helper()
	f.completer.push("Welcome! Tell me about yourself.")
	s, err := f.manager.Start(context.Background(), StartRequest{Position: "Backend Engineer"})
	require.NoError(t, err)
	return s
}

func TestStartAsksOpeningQuestion(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	v := s.View()
	require.Len(t, v.Transcript, 1)
	assert.Equal(t, api.RoleAssistant, v.Transcript[0].Role)
	assert.Equal(t, "Welcome! Tell me about yourself.", v.Transcript[0].Content)
	assert.Equal(t, "intro", v.Transcript[0].SectionID)
	assert.Equal(t, ModalityText, v.Modality)
	assert.Equal(t, "technical", v.InterviewType)
	assert.Equal(t, 2, v.TotalSections)
	assert.Equal(t, advance.PhaseIdle, v.Phase)
	assert.True(t, v.Started)
	assert.False(t, v.ChatDisabled)
	assert.Equal(t, 300, v.SectionSecondsLeft)

	assert.Equal(t, []string{"http"}, f.recorder.started)
	assert.Equal(t, 1, f.manager.Count())
	require.NotNil(t, f.writer.last())
	assert.Equal(t, storage.StatusActive, f.writer.last().Status)
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t, testYAML)

	_, err := f.manager.Start(context.Background(), StartRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.manager.Start(context.Background(), StartRequest{Position: "x", Modality: "hologram"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.manager.Start(context.Background(), StartRequest{Position: "x", Difficulty: "principal"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.manager.Start(context.Background(), StartRequest{Position: "x", InterviewType: "astrology"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	f.completer.err = errors.New("model down")
	_, err = f.manager.Start(context.Background(), StartRequest{Position: "x"})
	assert.Error(t, err)
	assert.Equal(t, 0, f.manager.Count())
}

func TestReplyAutoAdvancesAfterDelay(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	f.completer.push("Thanks, that covers the intro. [[NEXT_SECTION]]", "Let's code: reverse a linked list.")
	msg, err := s.Reply(context.Background(), longAnswer)
	require.NoError(t, err)
	assert.Equal(t, "Thanks, that covers the intro.", msg.Content)

	v := s.View()
	assert.Equal(t, advance.PhaseScheduled, v.Phase)
	assert.True(t, v.AutoAdvancing)
	assert.Equal(t, 0, v.SectionIndex)
	require.Len(t, f.sched.timers, 1)
	assert.Equal(t, 500*time.Millisecond, f.sched.timers[0].d)

	require.True(t, f.sched.fire())

	v = s.View()
	assert.Equal(t, advance.PhaseIdle, v.Phase)
	assert.Equal(t, 1, v.SectionIndex)
	require.NotNil(t, v.CurrentSection)
	assert.Equal(t, "coding", v.CurrentSection.ID)
	require.Len(t, v.Transcript, 4)
	assert.Equal(t, "Let's code: reverse a linked list.", v.Transcript[3].Content)
	assert.Equal(t, "coding", v.Transcript[3].SectionID)
	assert.Equal(t, []string{"auto"}, f.recorder.advances)
	assert.Equal(t, 1, f.writer.last().SectionIndex)
}

func TestShortReplyDoesNotAdvance(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	f.completer.push("Great, moving on. [[NEXT_SECTION]]")
	_, err := s.Reply(context.Background(), "ready")
	require.NoError(t, err)

	assert.Equal(t, advance.PhaseIdle, s.View().Phase)
	assert.Empty(t, f.sched.timers)
}

func TestAutoAdvanceDisabled(t *testing.T) {
	f := newFixture(t, testYAML+"  enabled: false\n")
	s := f.start(t)

	f.completer.push("Good. [[NEXT_SECTION]]")
	_, err := s.Reply(context.Background(), longAnswer)
	require.NoError(t, err)

	v := s.View()
	assert.False(t, v.AutoAdvanceEnabled)
	assert.Equal(t, advance.PhaseIdle, v.Phase)
	assert.Empty(t, f.sched.timers)

	require.NoError(t, s.Continue(context.Background()))
	assert.Equal(t, 1, s.View().SectionIndex)
}

func TestContinueCancelsScheduledAdvance(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	f.completer.push("Good. [[NEXT_SECTION]]", "Coding time.")
	_, err := s.Reply(context.Background(), longAnswer)
	require.NoError(t, err)
	require.Equal(t, advance.PhaseScheduled, s.View().Phase)

	require.NoError(t, s.Continue(context.Background()))
	assert.True(t, f.sched.timers[0].stopped)
	assert.False(t, f.sched.fire())

	v := s.View()
	assert.Equal(t, 1, v.SectionIndex)
	assert.Equal(t, []string{"manual"}, f.recorder.advances)
}

func TestContinuePastLastSectionEnds(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	require.NoError(t, s.Continue(context.Background()))
	require.NoError(t, s.Continue(context.Background()))

	v := s.View()
	assert.True(t, v.Ended)
	assert.True(t, v.ChatDisabled)
	assert.Equal(t, storage.StatusCompleted, v.Status)
	assert.Equal(t, float64(100), v.Progress)
	assert.Equal(t, 1, f.recorder.completed)
	assert.Equal(t, storage.StatusCompleted, f.writer.last().Status)

	assert.ErrorIs(t, s.Continue(context.Background()), ErrInterviewEnded)
	_, err := s.Reply(context.Background(), longAnswer)
	assert.ErrorIs(t, err, ErrInterviewEnded)
}

func TestFinishIsIdempotent(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	s.Finish(context.Background())
	s.Finish(context.Background())

	assert.True(t, s.Ended())
	assert.Equal(t, 1, f.recorder.completed)
	require.NotNil(t, f.writer.last().CompletedAt)
}

func TestTimeCeilingEndsOnNextReply(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	f.now = f.now.Add(31 * time.Minute)
	_, err := s.Reply(context.Background(), longAnswer)
	assert.ErrorIs(t, err, ErrInterviewEnded)
	assert.Equal(t, advance.PhaseEnded, s.View().Phase)
	assert.Equal(t, 1, f.recorder.completed)
}

func TestTimeCeilingFinishesIdleInterview(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	require.Len(t, f.sched.deadlines, 1)
	deadline := f.sched.deadlines[0]
	assert.Equal(t, 30*time.Minute, deadline.d)

	f.now = f.now.Add(31 * time.Minute)
	deadline.f()

	v := s.View()
	assert.True(t, v.Ended)
	assert.Equal(t, storage.StatusCompleted, v.Status)
	assert.Equal(t, 1, f.recorder.completed)

	rec := f.writer.last()
	assert.Equal(t, storage.StatusCompleted, rec.Status)
	assert.NotNil(t, rec.CompletedAt)

	// a late second fire changes nothing
	deadline.f()
	assert.Equal(t, 1, f.recorder.completed)
}

func TestDeadlineBeforeCeilingIsIgnored(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	f.now = f.now.Add(10 * time.Minute)
	f.sched.deadlines[0].f()

	assert.False(t, s.Ended())
	assert.Equal(t, 0, f.recorder.completed)
}

func TestReplyRejectsEmpty(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	_, err := s.Reply(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestReplyRecordsQuestionAndAnswer(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	_, err := s.Reply(context.Background(), longAnswer)
	require.NoError(t, err)

	rec := f.writer.last()
	require.Len(t, rec.Responses, 2)
	assert.Equal(t, "Welcome! Tell me about yourself.", rec.Responses[0].Question)
	assert.Equal(t, longAnswer, rec.Responses[0].Answer)
	assert.Equal(t, "Tell me more about that.", rec.Responses[1].Question)
	assert.Empty(t, rec.Responses[1].Answer)
	assert.Len(t, rec.Transcript, 3)
}

func TestAnalyzeFinishesAndStoresResult(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	_, err := s.Reply(context.Background(), longAnswer)
	require.NoError(t, err)

	a, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, analysis.Hire, a.Recommendation)

	require.Len(t, f.analyzer.inputs, 1)
	in := f.analyzer.inputs[0]
	assert.Equal(t, "Backend Engineer", in.Position)
	assert.Equal(t, []string{"Introduction", "Coding"}, in.Sections)
	assert.Len(t, in.Transcript, 3)

	assert.True(t, s.Ended())
	stored, ok := s.Analysis()
	require.True(t, ok)
	assert.Equal(t, "solid", stored.Summary)
	require.NotNil(t, f.writer.last().Analysis)
}

func TestAppendTranscriptObservesLastAssistantTurn(t *testing.T) {
	f := newFixture(t, testYAML)
	f.completer.push("Hi there, introduce yourself please.")
	s, err := f.manager.Start(context.Background(), StartRequest{Position: "SRE", Modality: "voice"})
	require.NoError(t, err)

	err = s.AppendTranscript(context.Background(), []TranscriptTurn{
		{Role: api.RoleUser, Content: longAnswer},
		{Role: api.RoleAssistant, Content: "Thanks for that. [[NEXT_SECTION]]"},
	})
	require.NoError(t, err)

	v := s.View()
	require.Len(t, v.Transcript, 3)
	assert.Equal(t, "Thanks for that.", v.Transcript[2].Content)
	assert.Equal(t, advance.PhaseScheduled, v.Phase)

	err = s.AppendTranscript(context.Background(), []TranscriptTurn{{Role: "system", Content: "x"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Len(t, s.View().Transcript, 3)
}

func TestRecordFallsBackToStore(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	rec, err := f.manager.Record(context.Background(), s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), rec.ID)

	f.manager.deps.Store.(*fakeStore).records["old"] = &storage.InterviewRecord{ID: "old", Status: storage.StatusCompleted}
	rec, err = f.manager.Record(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCompleted, rec.Status)

	_, err = f.manager.Record(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleanupEvictsIdleSessions(t *testing.T) {
	f := newFixture(t, testYAML)
	f.manager.ttl = 15 * time.Minute

	idle := f.start(t)
	f.completer.push("Done here. [[NEXT_SECTION]]")
	_, err := idle.Reply(context.Background(), longAnswer)
	require.NoError(t, err)
	require.Equal(t, advance.PhaseScheduled, idle.View().Phase)

	f.now = f.now.Add(20 * time.Minute)
	busy := f.start(t)

	assert.Equal(t, 1, f.manager.cleanupInactiveSessions())
	assert.Equal(t, 1, f.manager.Count())
	assert.Equal(t, 1, f.recorder.active)

	_, err = f.manager.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, advance.PhaseIdle, idle.View().Phase)
	assert.True(t, f.sched.timers[0].stopped)
	assert.True(t, f.sched.deadlines[0].stopped)
	assert.False(t, f.sched.deadlines[1].stopped)
	assert.Equal(t, []string{idle.ID()}, f.writer.forgotten)
	_, err = f.manager.Get(busy.ID())
	assert.NoError(t, err)
}

func TestSectionStartNotifies(t *testing.T) {
	f := newFixture(t, testYAML)
	s := f.start(t)

	var got []string
	s.OnSectionStart(func(m storage.Message) { got = append(got, m.Content) })

	f.completer.push("Coding time.")
	require.NoError(t, s.Continue(context.Background()))
	assert.Equal(t, []string{"Coding time."}, got)
}
