// Package config loads the optional YAML settings file and the .env secrets
// file. All fields have safe defaults; a missing settings file is not an
// error.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pulse/resonance"
	"pulse/tone"
)

type AlertSettings struct {
	Enabled    *bool  `yaml:"enabled"`
	Voice      *bool  `yaml:"voice"`
	Escalation *bool  `yaml:"escalation"`
	Tone       string `yaml:"tone"`
	Style      string `yaml:"style"`
}

type UserSettings struct {
	Name string `yaml:"name"`
	Tier string `yaml:"tier"`
}

type Config struct {
	Alerts          AlertSettings `yaml:"alerts"`
	LoudThreshold   float64       `yaml:"loud_threshold"`
	CurseWords      []string      `yaml:"curse_words"`
	AggressiveWords []string      `yaml:"aggressive_words"`
	Device          string        `yaml:"device"`
	Language        string        `yaml:"language"`
	LogPath         string        `yaml:"log_path"`
	User            UserSettings  `yaml:"user"`
}

func Default() *Config {
	return &Config{Language: "en"}
}

// Load reads the settings file at path. An empty path or a missing file
// yields defaults; a file that exists but fails to parse is an error, so a
// typo never silently reverts every setting.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads .env from the working directory into the process
// environment. Absence is fine; the environment may already be set.
func LoadEnv() {
	godotenv.Load()
}

// AlertConfig converts the settings into the dispatcher's runtime config.
// Unset booleans default to on; unknown tone and style strings normalize.
func (c *Config) AlertConfig() resonance.AlertConfig {
	on := func(v *bool) bool { return v == nil || *v }
	return resonance.AlertConfig{
		Enabled:           on(c.Alerts.Enabled),
		VoiceEnabled:      on(c.Alerts.Voice),
		EscalationEnabled: on(c.Alerts.Escalation),
		Tone:              tone.ParseWave(c.Alerts.Tone),
		Style:             resonance.ParseStyle(c.Alerts.Style),
	}
}

// Classifier builds a classifier extended with the configured word lists and
// loudness threshold.
func (c *Config) Classifier() *resonance.Classifier {
	cl := resonance.NewClassifier()
	cl.ExtendCurses(c.CurseWords...)
	cl.ExtendAggressive(c.AggressiveWords...)
	if c.LoudThreshold > 0 {
		cl.SetLoudThreshold(c.LoudThreshold)
	}
	return cl
}
