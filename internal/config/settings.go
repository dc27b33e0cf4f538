package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the tunables that govern runner, gate, and session
// behavior. Values come from a layered merge of built-in defaults, an
// optional YAML overlay file, and explicit overrides (e.g. CLI flags).
type Settings struct {
	Runner            RunnerSettings  `yaml:"runner"`
	Gate              GateSettings    `yaml:"gate"`
	Session           SessionSettings `yaml:"session"`
	ConfigSnapshotDir string          `yaml:"snapshot-dir"`
}

type RunnerSettings struct {
	DefaultTimeout    time.Duration `yaml:"default-timeout"`
	TerminationGrace  time.Duration `yaml:"termination-grace"`
	CreateChatTimeout time.Duration `yaml:"create-chat-timeout"`
}

type GateSettings struct {
	MaxConcurrency int `yaml:"max-concurrency"`
}

type SessionSettings struct {
	TTL time.Duration `yaml:"ttl"`
}

func defaultSettings() Settings {
	return Settings{
		Runner: RunnerSettings{
			DefaultTimeout:    2 * time.Minute,
			TerminationGrace:  500 * time.Millisecond,
			CreateChatTimeout: 5 * time.Second,
		},
		Gate: GateSettings{
			MaxConcurrency: 3,
		},
		Session: SessionSettings{
			TTL: 24 * time.Hour,
		},
	}
}

// LoadSettings layers the built-in defaults, an optional YAML overlay at
// path, and programmatic overrides, in that order. A missing overlay file
// is not an error; overrides win over everything.
func LoadSettings(path string, overrides *Settings) (Settings, error) {
	settings := defaultSettings()

	if strings.TrimSpace(path) != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Settings{}, err
			}
		} else if err := yaml.Unmarshal(payload, &settings); err != nil {
			return Settings{}, err
		}
	}

	if overrides != nil {
		applyOverrides(&settings, overrides)
	}

	normalize(&settings)
	return settings, nil
}

func applyOverrides(settings, overrides *Settings) {
	if overrides.Runner.DefaultTimeout > 0 {
		settings.Runner.DefaultTimeout = overrides.Runner.DefaultTimeout
	}
	if overrides.Runner.TerminationGrace > 0 {
		settings.Runner.TerminationGrace = overrides.Runner.TerminationGrace
	}
	if overrides.Runner.CreateChatTimeout > 0 {
		settings.Runner.CreateChatTimeout = overrides.Runner.CreateChatTimeout
	}
	if overrides.Gate.MaxConcurrency > 0 {
		settings.Gate.MaxConcurrency = overrides.Gate.MaxConcurrency
	}
	if overrides.Session.TTL > 0 {
		settings.Session.TTL = overrides.Session.TTL
	}
	if overrides.ConfigSnapshotDir != "" {
		settings.ConfigSnapshotDir = overrides.ConfigSnapshotDir
	}
}

func normalize(settings *Settings) {
	defaults := defaultSettings()
	if settings.Runner.DefaultTimeout <= 0 {
		settings.Runner.DefaultTimeout = defaults.Runner.DefaultTimeout
	}
	if settings.Runner.TerminationGrace <= 0 {
		settings.Runner.TerminationGrace = defaults.Runner.TerminationGrace
	}
	if settings.Runner.CreateChatTimeout <= 0 {
		settings.Runner.CreateChatTimeout = defaults.Runner.CreateChatTimeout
	}
	if settings.Gate.MaxConcurrency <= 0 {
		settings.Gate.MaxConcurrency = defaults.Gate.MaxConcurrency
	}
	if settings.Session.TTL <= 0 {
		settings.Session.TTL = defaults.Session.TTL
	}
}
