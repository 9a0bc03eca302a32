package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/lmpc/internal/collect"
	"github.com/kalambet/lmpc/internal/config"
	"github.com/kalambet/lmpc/internal/policy"
	"github.com/kalambet/lmpc/internal/storage"
	"github.com/kalambet/lmpc/internal/transcript"
)

func testConfig() config.Config {
	return config.Config{
		Model: config.ModelConfig{
			BaseURL:        "http://localhost:9999/v1",
			APIKey:         "sk-test",
			BaseModel:      "base-model",
			FineTunedModel: "ft:base-model:test",
			Temperature:    0.7,
		},
		Search: config.SearchConfig{Rollouts: 4, FeedbackBudget: 5},
	}
}

func TestBuildPolicy_Base(t *testing.T) {
	pol, err := buildPolicy(testConfig(), "base", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, ok := pol.(*policy.Base)
	if !ok {
		t.Fatalf("expected *policy.Base, got %T", pol)
	}
	if base.Model != "base-model" {
		t.Errorf("Model = %q, want %q", base.Model, "base-model")
	}
}

func TestBuildPolicy_LMPC(t *testing.T) {
	pol, err := buildPolicy(testConfig(), "lmpc", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lmpc, ok := pol.(*policy.LMPC)
	if !ok {
		t.Fatalf("expected *policy.LMPC, got %T", pol)
	}
	if lmpc.Model != "ft:base-model:test" {
		t.Errorf("Model = %q, want %q", lmpc.Model, "ft:base-model:test")
	}
	if lmpc.Rollouts != 4 {
		t.Errorf("Rollouts = %d, want 4", lmpc.Rollouts)
	}
}

func TestBuildPolicy_LMPCRequiresFineTunedModel(t *testing.T) {
	cfg := testConfig()
	cfg.Model.FineTunedModel = ""

	if _, err := buildPolicy(cfg, "lmpc", ""); err == nil {
		t.Fatal("expected error without a fine-tuned model")
	}

	// An explicit override stands in for the config value.
	pol, err := buildPolicy(cfg, "lmpc", "ft:override")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol.(*policy.LMPC).Model != "ft:override" {
		t.Errorf("Model = %q, want %q", pol.(*policy.LMPC).Model, "ft:override")
	}
}

func TestBuildPolicy_UnknownName(t *testing.T) {
	if _, err := buildPolicy(testConfig(), "oracle", ""); err == nil {
		t.Fatal("expected error for unknown policy name")
	}
}

func TestSaveCollected(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	msgs := transcript.Transcript{}.
		User("You are at the center. Go to the top.").
		Assistant("move_up()")
	msgs = append(msgs, transcript.Marker(true))

	run := collect.Run{
		ID:        "run-1",
		Speaker:   "alice",
		Policy:    "base",
		Noise:     0.1,
		StartedAt: time.Now().UTC(),
	}
	eps := []collect.Episode{{
		ID:         "ep-1",
		RunID:      "run-1",
		Speaker:    "alice",
		Goal:       "top",
		Noise:      0.1,
		Messages:   msgs,
		ChatLength: len(msgs),
		Success:    true,
		CreatedAt:  time.Now().UTC(),
	}}

	if err := saveCollected(store, run, eps); err != nil {
		t.Fatalf("saveCollected failed: %v", err)
	}

	got, err := store.GetEpisode("ep-1")
	if err != nil {
		t.Fatalf("GetEpisode failed: %v", err)
	}
	if got.Goal != "top" || !got.Success {
		t.Errorf("episode = %+v, want goal %q and success", got, "top")
	}

	var stored []transcript.Message
	if err := json.Unmarshal([]byte(got.MessagesJSON), &stored); err != nil {
		t.Fatalf("messages JSON is corrupt: %v", err)
	}
	if len(stored) != len(msgs) {
		t.Errorf("stored %d messages, want %d", len(stored), len(msgs))
	}

	if _, err := store.GetRun("run-1"); err != nil {
		t.Errorf("GetRun failed: %v", err)
	}
}

func TestColorizeRespectsNoColor(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorGreen, "ok"); strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorGreen, "ok"); !strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}
