package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/advance"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/transition"
)

// Config is the interview configuration loaded from YAML.
type Config struct {
	InterviewConfig InterviewConfig       `yaml:"interview_config"`
	Flows           map[string]FlowConfig `yaml:"flows"`
	Transition      TransitionConfig      `yaml:"transition"`
	AutoAdvance     AutoAdvanceConfig     `yaml:"auto_advance"`
}

// InterviewConfig holds settings shared by every flow.
type InterviewConfig struct {
	DefaultFlow         string `yaml:"default_flow"`
	TimeCeilingMinutes  int    `yaml:"time_ceiling_minutes"`
	MinSectionResponses int    `yaml:"min_section_responses"`
}

// FlowConfig is one interview plan, keyed by interview type in Config.Flows.
type FlowConfig struct {
	Focus         string          `yaml:"focus"`
	Difficulty    string          `yaml:"difficulty"`
	TotalDuration int             `yaml:"total_duration_minutes"`
	Sections      []SectionConfig `yaml:"sections"`
}

type SectionConfig struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Order      int      `yaml:"order"`
	Duration   int      `yaml:"duration_minutes"`
	FocusAreas []string `yaml:"focus_areas"`
}

type TransitionConfig struct {
	Token          string   `yaml:"token"`
	Phrases        []string `yaml:"phrases"`
	PhraseFallback *bool    `yaml:"phrase_fallback"`
}

type AutoAdvanceConfig struct {
	Enabled        *bool    `yaml:"enabled"`
	DelayMS        int      `yaml:"delay_ms"`
	MinReplyLength int      `yaml:"min_reply_length"`
	Starters       []string `yaml:"starters"`
}

// FlowTypes lists the configured interview types in order.
func (c *Config) FlowTypes() []string {
	types := make([]string, 0, len(c.Flows))
	for name := range c.Flows {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// BuildFlow returns the flow for interviewType, falling back to the default flow.
// A non-empty difficulty overrides the configured one.
func (c *Config) BuildFlow(interviewType, difficulty string) (*interview.Flow, error) {
	fc, ok := c.Flows[interviewType]
	if !ok {
		fc, ok = c.Flows[c.InterviewConfig.DefaultFlow]
		if !ok {
			return nil, fmt.Errorf("no flow for interview type %q", interviewType)
		}
	}

	sections := make([]interview.Section, 0, len(fc.Sections))
	for _, s := range fc.Sections {
		sections = append(sections, interview.Section{
			ID:                s.ID,
			Title:             s.Title,
			Order:             s.Order,
			EstimatedDuration: s.Duration,
			FocusAreas:        s.FocusAreas,
		})
	}

	d := fc.Difficulty
	if difficulty != "" {
		d = difficulty
	}
	return interview.NewFlow(interview.FlowSpec{
		Sections:      sections,
		TotalDuration: fc.TotalDuration,
		Difficulty:    interview.Difficulty(d),
		Focus:         fc.Focus,
	})
}

// NewDetector builds the transition detector from the transition block.
func (c *Config) NewDetector() *transition.Detector {
	var opts []transition.Option
	if c.Transition.Token != "" {
		opts = append(opts, transition.WithToken(c.Transition.Token))
	}
	if len(c.Transition.Phrases) > 0 {
		opts = append(opts, transition.WithPhrases(c.Transition.Phrases))
	}
	if c.Transition.PhraseFallback != nil && !*c.Transition.PhraseFallback {
		opts = append(opts, transition.WithoutPhraseFallback())
	}
	return transition.NewDetector(opts...)
}

// AutoAdvanceEnabled defaults to true.
func (c *Config) AutoAdvanceEnabled() bool {
	return c.AutoAdvance.Enabled == nil || *c.AutoAdvance.Enabled
}

// AutoAdvanceDelay defaults to advance.DefaultDelay.
func (c *Config) AutoAdvanceDelay() time.Duration {
	if c.AutoAdvance.DelayMS <= 0 {
		return advance.DefaultDelay
	}
	return time.Duration(c.AutoAdvance.DelayMS) * time.Millisecond
}

func (c *Config) NewGate() advance.Gate {
	return advance.NewGate(c.AutoAdvance.MinReplyLength, c.AutoAdvance.Starters)
}

// TimeCeiling defaults to interview.DefaultTimeCeiling.
func (c *Config) TimeCeiling() time.Duration {
	if c.InterviewConfig.TimeCeilingMinutes <= 0 {
		return interview.DefaultTimeCeiling
	}
	return time.Duration(c.InterviewConfig.TimeCeilingMinutes) * time.Minute
}

func (c *Config) MinSectionResponses() int {
	if c.InterviewConfig.MinSectionResponses <= 0 {
		return interview.DefaultMinSectionResponses
	}
	return c.InterviewConfig.MinSectionResponses
}
