package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the interview configuration.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse decodes YAML and validates it.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func validateConfig(config *Config) error {
	if len(config.Flows) == 0 {
		return fmt.Errorf("at least one flow is required")
	}

	if config.InterviewConfig.DefaultFlow == "" {
		return fmt.Errorf("interview_config.default_flow is required")
	}
	if _, ok := config.Flows[config.InterviewConfig.DefaultFlow]; !ok {
		return fmt.Errorf("default_flow %q is not defined in flows", config.InterviewConfig.DefaultFlow)
	}

	if config.InterviewConfig.TimeCeilingMinutes < 0 {
		return fmt.Errorf("time_ceiling_minutes cannot be negative")
	}
	if config.InterviewConfig.MinSectionResponses < 0 {
		return fmt.Errorf("min_section_responses cannot be negative")
	}

	// every flow must build
	for _, name := range config.FlowTypes() {
		if _, err := config.BuildFlow(name, ""); err != nil {
			return fmt.Errorf("flow %q: %w", name, err)
		}
	}

	if config.AutoAdvance.DelayMS < 0 {
		return fmt.Errorf("auto_advance.delay_ms cannot be negative")
	}
	if config.AutoAdvance.MinReplyLength < 0 {
		return fmt.Errorf("auto_advance.min_reply_length cannot be negative")
	}

	return nil
}
