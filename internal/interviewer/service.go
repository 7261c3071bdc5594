// Package interviewer runs one interviewer turn against the language model.
package interviewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khushi491/interview-buddy-sub000/internal/api"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/prompts"
	"github.com/khushi491/interview-buddy-sub000/internal/transition"
)

// Turn is the interviewer's reply with the control token removed.
type Turn struct {
	Text   string
	Raw    string
	Signal transition.Signal
}

type Service struct {
	client    Completer
	recorder  Recorder
	detector  *transition.Detector
	logger    *slog.Logger
	maxTokens int
}

// New builds the interviewer. A nil detector uses the defaults.
func New(client Completer, detector *transition.Detector, recorder Recorder, logger *slog.Logger) *Service {
	if detector == nil {
		detector = transition.NewDetector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:    client,
		recorder:  recorder,
		detector:  detector,
		logger:    logger,
		maxTokens: defaultMaxTokens,
	}
}

// Detector returns the detector used on replies.
func (s *Service) Detector() *transition.Detector {
	return s.detector
}

// BuildInput captures what the prompt needs from st. Call it while holding the
// session lock; Ask can then run without it.
func (s *Service) BuildInput(st *interview.State, modality string) prompts.InterviewerInput {
	_, hasNext := st.NextSection()
	return prompts.InterviewerInput{
		InterviewContext: st.InterviewContext(),
		SectionContext:   st.SectionContext(),
		Modality:         modality,
		Token:            s.detector.Token(),
		SectionComplete:  st.IsSectionComplete(),
		FinalSection:     !hasNext,
	}
}

// Ask sends the conversation with a system prompt built from in. instruction, when set,
// is appended as a trailing user message that is not part of the transcript.
func (s *Service) Ask(ctx context.Context, in prompts.InterviewerInput, history []api.Message, instruction string) (Turn, error) {
	messages := make([]api.Message, 0, len(history)+2)
	messages = append(messages, api.Message{Role: api.RoleSystem, Content: prompts.GenerateInterviewerPrompt(in)})
	messages = append(messages, history...)
	if instruction != "" {
		messages = append(messages, api.Message{Role: api.RoleUser, Content: instruction})
	}

	raw, err := s.call(ctx, messages)
	if err != nil {
		return Turn{}, fmt.Errorf("error generating question: %w", err)
	}

	raw = strings.TrimSpace(raw)
	turn := Turn{
		Raw:    raw,
		Text:   s.detector.Strip(raw),
		Signal: s.detector.Detect(raw),
	}
	if turn.Signal.Fired() {
		s.logger.Debug("transition signal", "source", turn.Signal.Source, "phrase", turn.Signal.Phrase)
	}
	if s.recorder != nil {
		s.recorder.IncrementQuestionsAsked()
	}
	return turn, nil
}
