package config

import (
	"strings"
	"testing"
)

// memBackend is a test double for the config backend.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	if m.strings == nil {
		m.strings = make(map[string]string)
	}
	m.strings[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	if m.ints == nil {
		m.ints = make(map[string]int)
	}
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k.env, "")
	}
}

// TestDefaults verifies all default values are applied when the
// backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&memBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("Model.BaseURL = %q", cfg.Model.BaseURL)
	}
	if cfg.Model.BaseModel != "gpt-3.5-turbo" {
		t.Errorf("Model.BaseModel = %q", cfg.Model.BaseModel)
	}
	if cfg.Model.Temperature != 0.7 {
		t.Errorf("Model.Temperature = %v, want 0.7", cfg.Model.Temperature)
	}
	if cfg.Search.Rollouts != 4 {
		t.Errorf("Search.Rollouts = %d, want 4", cfg.Search.Rollouts)
	}
	if cfg.Search.FeedbackBudget != 5 {
		t.Errorf("Search.FeedbackBudget = %d, want 5", cfg.Search.FeedbackBudget)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

// TestBackendValues verifies that stored values override defaults.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := &memBackend{
		strings: map[string]string{
			"model.base_url":         "http://localhost:8000/v1",
			"model.fine_tuned_model": "ft:gpt-3.5-turbo:acme::abc123",
			"model.temperature":      "0.2",
			"storage.data_dir":       "/tmp/lmpc-test",
		},
		ints: map[string]int{
			"search.rollouts": 8,
			"server.port":     5100,
		},
	}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model.BaseURL != "http://localhost:8000/v1" {
		t.Errorf("Model.BaseURL = %q", cfg.Model.BaseURL)
	}
	if cfg.Model.FineTunedModel != "ft:gpt-3.5-turbo:acme::abc123" {
		t.Errorf("Model.FineTunedModel = %q", cfg.Model.FineTunedModel)
	}
	if cfg.Model.Temperature != 0.2 {
		t.Errorf("Model.Temperature = %v, want 0.2", cfg.Model.Temperature)
	}
	if cfg.Search.Rollouts != 8 {
		t.Errorf("Search.Rollouts = %d, want 8", cfg.Search.Rollouts)
	}
	if cfg.Server.Port != 5100 {
		t.Errorf("Server.Port = %d, want 5100", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/lmpc-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

// TestEnvOverride verifies that environment variables win over stored values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := &memBackend{
		strings: map[string]string{"model.base_model": "file-model"},
		ints:    map[string]int{"search.rollouts": 2},
	}

	t.Setenv("LMPC_BASE_MODEL", "env-model")
	t.Setenv("LMPC_ROLLOUTS", "16")
	t.Setenv("LMPC_API_KEY", "env-secret")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model.BaseModel != "env-model" {
		t.Errorf("Model.BaseModel = %q, want %q", cfg.Model.BaseModel, "env-model")
	}
	if cfg.Search.Rollouts != 16 {
		t.Errorf("Search.Rollouts = %d, want 16", cfg.Search.Rollouts)
	}
	if cfg.Model.APIKey != "env-secret" {
		t.Errorf("Model.APIKey = %q, want %q", cfg.Model.APIKey, "env-secret")
	}
}

// TestRequireAPIKey verifies a clear error when no credential is set.
func TestRequireAPIKey(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&memBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = cfg.RequireAPIKey()
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "LMPC_API_KEY") {
		t.Errorf("error = %q, want mention of LMPC_API_KEY", err.Error())
	}

	cfg.Model.APIKey = "sk-test"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("unexpected error with key set: %v", err)
	}
}

// TestSecretNotReadFromBackend verifies the API key is ignored even if
// a value somehow ends up in the file backend.
func TestSecretNotReadFromBackend(t *testing.T) {
	clearEnv(t)

	b := &memBackend{strings: map[string]string{"model.api_key": "leaked"}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.APIKey != "" {
		t.Errorf("Model.APIKey = %q, want empty", cfg.Model.APIKey)
	}
}

func TestShowAllOmitsSecrets(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&memBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Model.APIKey = "sk-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "model.api_key" {
			t.Errorf("ShowAll exposed secret key %q", info.Key)
		}
		if info.Value == "sk-secret" {
			t.Errorf("ShowAll exposed secret value via %q", info.Key)
		}
	}
}

func TestValidKeys(t *testing.T) {
	names := ValidKeys()
	if len(names) == 0 {
		t.Fatal("no valid keys")
	}
	for _, n := range names {
		if n == "model.api_key" {
			t.Errorf("secret key %q listed as settable", n)
		}
	}
}
