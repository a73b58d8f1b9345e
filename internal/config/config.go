package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Content struct {
		TTL string `yaml:"ttl"`
	} `yaml:"content"`
	Game Game `yaml:"game"`
}

// Game tunes the round lifecycle. Zero values fall back to the engine defaults.
type Game struct {
	QuestionTimeLimit     int    `yaml:"questionTimeLimit"`
	BasePoints            int    `yaml:"basePoints"`
	PollInterval          string `yaml:"pollInterval"`
	AutoAdvance           string `yaml:"autoAdvance"`
	ExplanationDelay      string `yaml:"explanationDelay"`
	CluesDelay            string `yaml:"cluesDelay"`
	RoomIdleTimeout       string `yaml:"roomIdleTimeout"`
	RevealWhenAllAnswered *bool  `yaml:"revealWhenAllAnswered"`
	HintPenaltyPercent    *int   `yaml:"hintPenaltyPercent"`
}

// DefaultHintPenaltyPercent is deducted from challenge points per hint used.
const DefaultHintPenaltyPercent = 25

// HintPenalty returns the configured percentage or the default.
func (g Game) HintPenalty() int {
	if g.HintPenaltyPercent == nil {
		return DefaultHintPenaltyPercent
	}
	return *g.HintPenaltyPercent
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
