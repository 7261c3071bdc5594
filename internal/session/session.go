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
	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
	"github.com/khushi491/interview-buddy-sub000/internal/api"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/interviewer"
	"github.com/khushi491/interview-buddy-sub000/internal/prompts"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
)

const turnTimeout = 60 * time.Second

// Modalities a session can be tagged with.
const (
	ModalityText  = "text"
	ModalityVoice = "voice"
	ModalityVideo = "video"
)

// TranscriptTurn is one turn pushed by a voice or video client.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one live interview. Lock order is turn, then mu, then the controller's own lock.
type Session struct {
	id       string
	modality string
	deps     *Dependencies
	gate     advance.Gate
	logger   *slog.Logger

	// turn serializes model calls so replies cannot interleave.
	turn sync.Mutex

	mu            sync.Mutex
	state         *interview.State
	transcript    []storage.Message
	lastQuestion  string
	lastUserReply string
	analysis      *analysis.Analysis
	analyzing     bool
	createdAt     time.Time
	completedAt   *time.Time
	lastActivity  time.Time

	controller *advance.Controller
	deadline   advance.Timer
	notify     func(storage.Message)
}

func newSession(id, modality string, st *interview.State, deps *Dependencies, gate advance.Gate) *Session {
	now := deps.Now()
	s := &Session{
		id:           id,
		modality:     modality,
		deps:         deps,
		gate:         gate,
		logger:       deps.Logger.With("interview_id", id),
		state:        st,
		createdAt:    now,
		lastActivity: now,
	}

	opts := []advance.ControllerOption{
		advance.WithEnabled(deps.Config.AutoAdvanceEnabled()),
		advance.WithDelay(deps.Config.AutoAdvanceDelay()),
	}
	if deps.Scheduler != nil {
		opts = append(opts, advance.WithScheduler(deps.Scheduler))
	}
	s.controller = advance.NewController(s, s.logger, opts...)
	return s
}

// armDeadline ends the interview once the time ceiling passes, even if the
// candidate never sends another message.
func (s *Session) armDeadline(ceiling time.Duration) {
	schedule := s.deps.Scheduler
	if schedule == nil {
		schedule = func(d time.Duration, f func()) advance.Timer { return time.AfterFunc(d, f) }
	}
	left := ceiling - s.deps.Now().Sub(s.state.StartTime())
	if left < 0 {
		left = 0
	}
	s.deadline = schedule(left, s.expire)
}

func (s *Session) expire() {
	s.mu.Lock()
	due := s.state.IsInterviewComplete()
	s.mu.Unlock()
	if !due {
		return
	}
	s.logger.Info("interview time limit reached")
	s.finishIfDue(context.Background())
}

// stop cancels pending timers without ending the interview.
func (s *Session) stop() {
	s.controller.Stop()
	if s.deadline != nil {
		s.deadline.Stop()
	}
}

func (s *Session) ID() string {
	return s.id
}

// OnSectionStart registers f to receive the opening message of every later section.
// f runs during the advance; it may call View but not Reply, Continue or Finish.
func (s *Session) OnSectionStart(f func(storage.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = f
}

// Reply records the candidate's message and returns the interviewer's answer.
func (s *Session) Reply(ctx context.Context, text string) (storage.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return storage.Message{}, fmt.Errorf("%w: empty message", ErrInvalidRequest)
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	if s.endedLocked() {
		s.mu.Unlock()
		s.finishIfDue(ctx)
		return storage.Message{}, ErrInterviewEnded
	}
	s.recordUserLocked(text)
	s.mu.Unlock()

	turn, err := s.ask(ctx, "")
	if err != nil {
		s.Persist(ctx, false)
		return storage.Message{}, fmt.Errorf("interviewer turn: %w", err)
	}

	s.mu.Lock()
	msg := s.recordAssistantLocked(turn.Text)
	ev, due := s.observationLocked(msg, turn.Raw)
	rec := s.recordLocked()
	s.mu.Unlock()

	s.submit(rec)
	s.react(ctx, ev, due)
	return msg, nil
}

// AppendTranscript logs turns captured by a voice or video client. The last assistant
// turn is checked for a section transition.
func (s *Session) AppendTranscript(ctx context.Context, turns []TranscriptTurn) error {
	for _, t := range turns {
		if t.Role != api.RoleAssistant && t.Role != api.RoleUser {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, t.Role)
		}
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	if s.endedLocked() {
		s.mu.Unlock()
		s.finishIfDue(ctx)
		return ErrInterviewEnded
	}

	var (
		last    *storage.Message
		lastRaw string
	)
	detector := s.deps.Interviewer.Detector()
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if t.Role == api.RoleUser {
			s.recordUserLocked(content)
			continue
		}
		msg := s.recordAssistantLocked(detector.Strip(content))
		last, lastRaw = &msg, content
	}

	var (
		ev  advance.MessageObserved
		due = s.state.IsInterviewComplete()
	)
	if last != nil {
		ev, due = s.observationLocked(*last, lastRaw)
	}
	rec := s.recordLocked()
	s.mu.Unlock()

	s.submit(rec)
	if last != nil || due {
		s.react(ctx, ev, due)
	}
	return nil
}

// Continue moves to the next section now.
func (s *Session) Continue(ctx context.Context) error {
	s.mu.Lock()
	s.lastActivity = s.deps.Now()
	ended := s.endedLocked()
	s.mu.Unlock()
	if ended {
		s.finishIfDue(ctx)
		return ErrInterviewEnded
	}

	err := s.controller.Continue(ctx)
	switch {
	case errors.Is(err, advance.ErrEnded):
		return ErrInterviewEnded
	case errors.Is(err, advance.ErrBusy):
		return ErrBusy
	}
	return err
}

// Finish ends the interview. Calling it again has no effect.
func (s *Session) Finish(ctx context.Context) {
	s.controller.Finish(ctx)
}

// Analyze ends the interview if needed and grades it.
func (s *Session) Analyze(ctx context.Context) (analysis.Analysis, error) {
	s.mu.Lock()
	if s.analyzing {
		s.mu.Unlock()
		return analysis.Analysis{}, ErrAnalysisInProgress
	}
	s.analyzing = true
	s.lastActivity = s.deps.Now()
	s.mu.Unlock()

	s.controller.Finish(ctx)

	s.mu.Lock()
	in := s.gradingInputLocked()
	s.mu.Unlock()

	a := s.deps.Analyzer.Analyze(ctx, s.id, in)

	s.mu.Lock()
	s.analyzing = false
	s.analysis = &a
	rec := s.recordLocked()
	s.mu.Unlock()

	s.submit(rec)
	return a, nil
}

// Analysis returns the stored grading, if any.
func (s *Session) Analysis() (analysis.Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysis == nil {
		return analysis.Analysis{}, false
	}
	return *s.analysis, true
}

// Ended reports whether the interview accepts no more input.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedLocked()
}

// Advance implements advance.Effects.
func (s *Session) Advance() (interview.Section, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.ProgressToNextSection() {
		return interview.Section{}, false
	}
	section, _ := s.state.CurrentSection()
	s.deps.Recorder.IncrementSectionAdvance(string(s.controller.Trigger()))
	return section, true
}

// BeginSection implements advance.Effects.
func (s *Session) BeginSection(ctx context.Context, section interview.Section) error {
	s.turn.Lock()
	defer s.turn.Unlock()

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	turn, err := s.ask(ctx, prompts.GenerateSectionInstruction(section.Title, section.FocusAreas))
	if err != nil {
		return fmt.Errorf("opening question for section %s: %w", section.ID, err)
	}

	s.mu.Lock()
	msg := s.recordAssistantLocked(turn.Text)
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(msg)
	}
	return nil
}

// Persist implements advance.Effects.
func (s *Session) Persist(_ context.Context, final bool) {
	s.mu.Lock()
	firstCompletion := false
	if final {
		s.state.Finish()
		if s.completedAt == nil {
			t := s.deps.Now()
			s.completedAt = &t
			firstCompletion = true
		}
	}
	rec := s.recordLocked()
	s.mu.Unlock()

	if firstCompletion {
		s.deps.Recorder.IncrementInterviewsCompleted()
		s.logger.Info("interview completed", "responses", len(rec.Responses), "sections_done", rec.SectionIndex+1)
	}
	s.submit(rec)
}

// open asks the first question of the first section.
func (s *Session) open(ctx context.Context) error {
	s.turn.Lock()
	defer s.turn.Unlock()

	turn, err := s.ask(ctx, prompts.GenerateOpeningInstruction(s.state.Candidate().Position))
	if err != nil {
		return fmt.Errorf("opening question: %w", err)
	}

	s.mu.Lock()
	s.recordAssistantLocked(turn.Text)
	rec := s.recordLocked()
	s.mu.Unlock()

	s.submit(rec)
	return nil
}

func (s *Session) ask(ctx context.Context, instruction string) (interviewer.Turn, error) {
	s.mu.Lock()
	in := s.deps.Interviewer.BuildInput(s.state, s.modality)
	history := s.historyLocked()
	s.mu.Unlock()

	return s.deps.Interviewer.Ask(ctx, in, history, instruction)
}

// observationLocked builds the advance event for an assistant message and reports
// whether the time ceiling has been reached instead.
func (s *Session) observationLocked(msg storage.Message, raw string) (advance.MessageObserved, bool) {
	if s.state.IsInterviewComplete() {
		return advance.MessageObserved{}, true
	}
	return advance.MessageObserved{
		Key:       msg.ID + "\x00" + msg.Content,
		Text:      msg.Content,
		ContentOK: s.gate.Allow(s.lastUserReply),
		Signal:    s.state.ShouldAutoAdvanceBasedOnResponse(raw) || s.state.ShouldAutoAdvance(),
	}, false
}

func (s *Session) react(ctx context.Context, ev advance.MessageObserved, due bool) {
	if due {
		s.controller.Finish(ctx)
		return
	}
	s.controller.Observe(ctx, ev)
}

func (s *Session) finishIfDue(ctx context.Context) {
	if s.controller.Phase() != advance.PhaseEnded {
		s.controller.Finish(ctx)
	}
}

func (s *Session) endedLocked() bool {
	return s.controller.Phase() == advance.PhaseEnded || s.state.IsInterviewComplete()
}

func (s *Session) appendMessageLocked(role, content string) storage.Message {
	now := s.deps.Now()
	msg := storage.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		SectionID: s.state.CurrentSectionID(),
		CreatedAt: now,
	}
	s.transcript = append(s.transcript, msg)
	s.lastActivity = now
	return msg
}

func (s *Session) recordAssistantLocked(text string) storage.Message {
	msg := s.appendMessageLocked(api.RoleAssistant, text)
	s.state.AddResponse(text, "")
	s.lastQuestion = text
	return msg
}

func (s *Session) recordUserLocked(text string) {
	s.appendMessageLocked(api.RoleUser, text)
	if s.lastQuestion != "" {
		if res := s.state.AddResponse(s.lastQuestion, text); !res.Changed() {
			s.logger.Debug("answer not logged", "result", res.String())
		}
	}
	s.lastUserReply = text
}

func (s *Session) historyLocked() []api.Message {
	history := make([]api.Message, 0, len(s.transcript))
	for _, m := range s.transcript {
		history = append(history, api.Message{Role: m.Role, Content: m.Content})
	}
	return history
}

func (s *Session) gradingInputLocked() prompts.GradingInput {
	c := s.state.Candidate()
	flow := s.state.Flow()

	sections := make([]string, 0, flow.Len())
	for _, sec := range flow.Sections() {
		sections = append(sections, sec.Title)
	}
	turns := make([]prompts.Turn, 0, len(s.transcript))
	for _, m := range s.transcript {
		turns = append(turns, prompts.Turn{Role: m.Role, Content: m.Content})
	}
	return prompts.GradingInput{
		Position:      c.Position,
		InterviewType: c.InterviewType,
		Difficulty:    string(flow.Difficulty()),
		Sections:      sections,
		Transcript:    turns,
	}
}

func (s *Session) recordLocked() *storage.InterviewRecord {
	snap := s.state.Snapshot()

	responses := make([]storage.QA, 0, len(snap.Responses))
	for _, r := range snap.Responses {
		responses = append(responses, storage.QA{
			Question:  r.Question,
			Answer:    r.Answer,
			SectionID: r.SectionID,
			CreatedAt: r.CreatedAt,
		})
	}
	transcript := make([]storage.Message, len(s.transcript))
	copy(transcript, s.transcript)

	status := storage.StatusActive
	if s.completedAt != nil {
		status = storage.StatusCompleted
	}

	rec := &storage.InterviewRecord{
		ID:               s.id,
		Status:           status,
		Position:         snap.Position,
		InterviewType:    snap.InterviewType,
		Modality:         s.modality,
		Difficulty:       string(s.state.Flow().Difficulty()),
		SectionIndex:     snap.SectionIndex,
		CurrentSectionID: snap.CurrentSectionID,
		ElapsedMinutes:   snap.ElapsedMinutes,
		Responses:        responses,
		Transcript:       transcript,
		CreatedAt:        s.createdAt,
		CompletedAt:      s.completedAt,
		UpdatedAt:        s.deps.Now(),
	}
	if s.analysis != nil {
		a := *s.analysis
		rec.Analysis = &a
	}
	return rec
}

func (s *Session) submit(rec *storage.InterviewRecord) {
	if _, err := s.deps.Writer.Submit(rec); err != nil {
		s.logger.Error("persistence failed", "op", "submit", "error", err)
	}
}
