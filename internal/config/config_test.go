package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
log:
  level: debug
  pretty: true
redis:
  addr: localhost:6379
  ttl: 5m
game:
  questionTimeLimit: 15
  autoAdvance: 0s
  revealWhenAllAnswered: false
  hintPenaltyPercent: 10
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Game.QuestionTimeLimit != 15 {
		t.Fatalf("expected time limit 15, got %d", cfg.Game.QuestionTimeLimit)
	}
	if cfg.Game.RevealWhenAllAnswered == nil || *cfg.Game.RevealWhenAllAnswered {
		t.Fatalf("expected revealWhenAllAnswered=false")
	}
	if cfg.Game.HintPenalty() != 10 {
		t.Fatalf("expected hint penalty 10, got %d", cfg.Game.HintPenalty())
	}
	if got := Duration(cfg.Game.AutoAdvance, time.Minute); got != 0 {
		t.Fatalf("expected explicit zero auto-advance, got %v", got)
	}
	if got := Duration(cfg.Redis.TTL, time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %v", got)
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := Duration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for invalid, got %v", got)
	}
	if (Game{}).HintPenalty() != DefaultHintPenaltyPercent {
		t.Fatalf("expected default hint penalty")
	}
}
