package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khushi491/interview-buddy-sub000/internal/advance"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/transition"
)

const minimalYAML = `
interview_config:
  default_flow: technical
flows:
  technical:
    sections:
      - {id: intro, title: Intro, order: 1, duration_minutes: 5}
      - {id: tech, title: Tech, order: 2, duration_minutes: 5, focus_areas: [go]}
`

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "interview.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"behavioral", "system-design", "technical"}, cfg.FlowTypes())
	assert.Equal(t, 3*time.Second, cfg.AutoAdvanceDelay())
	assert.True(t, cfg.AutoAdvanceEnabled())
	assert.Equal(t, 25*time.Minute, cfg.TimeCeiling())

	flow, err := cfg.BuildFlow("system-design", "")
	require.NoError(t, err)
	assert.Equal(t, interview.DifficultySenior, flow.Difficulty())
	assert.Equal(t, 4, flow.Len())
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.True(t, cfg.AutoAdvanceEnabled())
	assert.Equal(t, advance.DefaultDelay, cfg.AutoAdvanceDelay())
	assert.Equal(t, interview.DefaultTimeCeiling, cfg.TimeCeiling())
	assert.Equal(t, interview.DefaultMinSectionResponses, cfg.MinSectionResponses())
	assert.Equal(t, transition.DefaultToken, cfg.NewDetector().Token())

	flow, err := cfg.BuildFlow("unknown-type", "")
	require.NoError(t, err)
	assert.Equal(t, 10, flow.TotalDuration())
	assert.Equal(t, interview.DifficultyMid, flow.Difficulty())

	flow, err = cfg.BuildFlow("technical", "entry")
	require.NoError(t, err)
	assert.Equal(t, interview.DifficultyEntry, flow.Difficulty())

	_, err = cfg.BuildFlow("technical", "principal")
	assert.Error(t, err)
}

func TestParseDetectorSettings(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
transition:
  token: "<<NEXT>>"
  phrase_fallback: false
auto_advance:
  enabled: false
  delay_ms: 500
`))
	require.NoError(t, err)

	d := cfg.NewDetector()
	assert.Equal(t, "<<NEXT>>", d.Token())
	assert.False(t, d.Detect("Let's move on to the next section").Fired())
	assert.True(t, d.Detect("Good. <<NEXT>>").Fired())
	assert.False(t, cfg.AutoAdvanceEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.AutoAdvanceDelay())
}

func TestTokenOnlyDetectorUsesDefaultToken(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "transition: {phrase_fallback: false}"))
	require.NoError(t, err)

	d := cfg.NewDetector()
	assert.Equal(t, transition.DefaultToken, d.Token())
	assert.True(t, d.Detect("Good. "+transition.DefaultToken).Fired())
	assert.False(t, d.Detect("Let's move on to the next section").Fired())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no flows", "interview_config: {default_flow: x}", "at least one flow"},
		{"no default", `
flows:
  a:
    sections: [{id: s, title: S, order: 1, duration_minutes: 1}]`, "default_flow is required"},
		{"unknown default", `
interview_config: {default_flow: b}
flows:
  a:
    sections: [{id: s, title: S, order: 1, duration_minutes: 1}]`, "not defined"},
		{"bad section", `
interview_config: {default_flow: a}
flows:
  a:
    sections: [{id: s, title: S, order: 1, duration_minutes: 0}]`, `flow "a"`},
		{"negative delay", minimalYAML + "auto_advance: {delay_ms: -1}", "delay_ms"},
		{"bad yaml", "flows: [", "error parsing YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadAppConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_TEMPERATURE", "not-a-number")

	cfg := LoadAppConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Interview.SessionTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 0.0001)
}

func TestAppConfigValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := LoadAppConfig()
	assert.ErrorContains(t, cfg.Validate(), "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	cfg = LoadAppConfig()
	assert.ErrorContains(t, cfg.Validate(), "MONGO_URI")

	t.Setenv("STORAGE_BACKEND", "redis")
	cfg = LoadAppConfig()
	assert.ErrorContains(t, cfg.Validate(), "STORAGE_BACKEND")
}
