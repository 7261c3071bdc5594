package interviewer

import (
	"context"
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/api"
)

const (
	defaultMaxTokens   = 400
	defaultTemperature = 0.7
)

// Completer is the chat call the interviewer needs.
type Completer interface {
	Complete(ctx context.Context, messages []api.Message, opts api.Options) (string, error)
}

// Recorder receives interviewer counters.
type Recorder interface {
	IncrementQuestionsAsked()
	ObserveAPICall(success bool, d time.Duration)
}

func (s *Service) call(ctx context.Context, messages []api.Message) (string, error) {
	start := time.Now()
	out, err := s.client.Complete(ctx, messages, api.Options{
		Temperature: defaultTemperature,
		MaxTokens:   s.maxTokens,
	})
	if s.recorder != nil {
		s.recorder.ObserveAPICall(err == nil, time.Since(start))
	}
	if err != nil {
		s.logger.Error("model call failed", "error", err, "messages", len(messages))
		return "", err
	}
	return out, nil
}
