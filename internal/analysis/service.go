// Package analysis grades a finished interview and never fails the caller.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/api"
	"github.com/khushi491/interview-buddy-sub000/internal/prompts"
)

type Recommendation string

const (
	Hire   Recommendation = "HIRE"
	Maybe  Recommendation = "MAYBE"
	NoHire Recommendation = "NO_HIRE"
)

// Fallback reasons.
const (
	ReasonModelError     = "model_error"
	ReasonParseError     = "parse_error"
	ReasonInvalidPayload = "invalid_payload"
)

const (
	fallbackScore = 6
	minScore      = 1
	maxScore      = 10
	gradingTokens = 1500
)

var (
	jsonBlock         = regexp.MustCompile(`(?s)\{.*\}`)
	errInvalidPayload = errors.New("invalid analysis payload")
)

type Score struct {
	Score int    `json:"score" bson:"score"`
	Notes string `json:"notes" bson:"notes"`
}

// Analysis is the grading result.
type Analysis struct {
	OverallScore     int            `json:"overallScore" bson:"overallScore"`
	Strengths        []string       `json:"strengths" bson:"strengths"`
	ImprovementAreas []string       `json:"improvementAreas" bson:"improvementAreas"`
	TechnicalSkills  Score          `json:"technicalSkills" bson:"technicalSkills"`
	Communication    Score          `json:"communication" bson:"communication"`
	ProblemSolving   Score          `json:"problemSolving" bson:"problemSolving"`
	CulturalFit      Score          `json:"culturalFit" bson:"culturalFit"`
	Recommendation   Recommendation `json:"recommendation" bson:"recommendation"`
	Summary          string         `json:"summary" bson:"summary"`
	KeyInsights      []string       `json:"keyInsights" bson:"keyInsights"`

	Fallback       bool      `json:"fallback,omitempty" bson:"fallback,omitempty"`
	FallbackReason string    `json:"fallbackReason,omitempty" bson:"fallbackReason,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt" bson:"generatedAt"`
}

// Completer is the model call the grader needs.
type Completer interface {
	CompleteJSON(ctx context.Context, messages []api.Message, opts api.Options) (string, error)
}

// Recorder receives grading counters.
type Recorder interface {
	IncrementAnalysesGenerated()
	IncrementAnalysisFallback(reason string)
}

type Service struct {
	client   Completer
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func New(client Completer, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, recorder: recorder, logger: logger, now: time.Now}
}

// Analyze grades the interview. Model and parse failures produce the neutral fallback.
func (s *Service) Analyze(ctx context.Context, interviewID string, in prompts.GradingInput) Analysis {
	prompt := prompts.GenerateGradingPrompt(in)
	raw, err := s.client.CompleteJSON(ctx, []api.Message{{Role: api.RoleUser, Content: prompt}}, api.Options{
		Temperature: 0.2,
		MaxTokens:   gradingTokens,
	})
	if err != nil {
		return s.fallback(interviewID, ReasonModelError, err)
	}

	result, err := Parse(raw)
	if err != nil {
		reason := ReasonParseError
		if errors.Is(err, errInvalidPayload) {
			reason = ReasonInvalidPayload
		}
		return s.fallback(interviewID, reason, err)
	}

	result.GeneratedAt = s.now()
	s.count()
	s.logger.Info("analysis generated", "interview_id", interviewID, "overall_score", result.OverallScore, "recommendation", result.Recommendation)
	return result
}

// Parse extracts the first JSON object from raw model output and validates it.
func Parse(raw string) (Analysis, error) {
	block := jsonBlock.FindString(api.CleanJSONResponse(raw))
	if block == "" {
		return Analysis{}, fmt.Errorf("no json object in model output")
	}

	var a Analysis
	if err := json.Unmarshal([]byte(block), &a); err != nil {
		return Analysis{}, fmt.Errorf("error unmarshaling analysis: %w", err)
	}
	if err := a.validate(); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

func (a *Analysis) validate() error {
	a.Recommendation = normalizeRecommendation(a.Recommendation)
	switch a.Recommendation {
	case Hire, Maybe, NoHire:
	default:
		return fmt.Errorf("%w: recommendation %q", errInvalidPayload, a.Recommendation)
	}

	scores := map[string]int{
		"overallScore":    a.OverallScore,
		"technicalSkills": a.TechnicalSkills.Score,
		"communication":   a.Communication.Score,
		"problemSolving":  a.ProblemSolving.Score,
		"culturalFit":     a.CulturalFit.Score,
	}
	for name, v := range scores {
		if v < minScore || v > maxScore {
			return fmt.Errorf("%w: %s=%d out of range", errInvalidPayload, name, v)
		}
	}
	if strings.TrimSpace(a.Summary) == "" {
		return fmt.Errorf("%w: empty summary", errInvalidPayload)
	}
	return nil
}

func normalizeRecommendation(r Recommendation) Recommendation {
	s := strings.ToUpper(strings.TrimSpace(string(r)))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Recommendation(s)
}

func (s *Service) fallback(interviewID, reason string, err error) Analysis {
	s.logger.Warn("analysis fallback", "interview_id", interviewID, "reason", reason, "error", err)
	if s.recorder != nil {
		s.recorder.IncrementAnalysisFallback(reason)
	}
	s.count()

	a := Fallback()
	a.FallbackReason = reason
	a.GeneratedAt = s.now()
	return a
}

func (s *Service) count() {
	if s.recorder != nil {
		s.recorder.IncrementAnalysesGenerated()
	}
}

// Fallback is the neutral payload returned when grading cannot be trusted.
func Fallback() Analysis {
	neutral := func(notes string) Score { return Score{Score: fallbackScore, Notes: notes} }
	return Analysis{
		OverallScore:     fallbackScore,
		Strengths:        []string{"Completed the interview"},
		ImprovementAreas: []string{"Detailed feedback is unavailable for this session"},
		TechnicalSkills:  neutral("Not assessed"),
		Communication:    neutral("Not assessed"),
		ProblemSolving:   neutral("Not assessed"),
		CulturalFit:      neutral("Not assessed"),
		Recommendation:   Maybe,
		Summary:          "An automated assessment could not be produced for this interview. Scores are neutral placeholders.",
		KeyInsights:      []string{"Review the transcript manually"},
		Fallback:         true,
	}
}
