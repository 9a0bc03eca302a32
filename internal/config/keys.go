package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyKind int

const (
	kString keyKind = iota
	kInt
	kFloat
)

// keySpec describes one configurable key: its flat name in the JSON
// file, the environment variable that overrides it, and how to read
// and write the corresponding Config field. Secret keys are accepted
// only from the environment and never stored in the file.
type keySpec struct {
	key     string
	typ     keyKind
	env     string
	secret  bool
	apply   func(c *Config, s string) error
	extract func(c Config) string
}

var keys = []keySpec{
	{
		key: "model.base_url", typ: kString, env: "LMPC_MODEL_BASE_URL",
		apply:   func(c *Config, s string) error { c.Model.BaseURL = s; return nil },
		extract: func(c Config) string { return c.Model.BaseURL },
	},
	{
		key: "model.api_key", typ: kString, env: "LMPC_API_KEY", secret: true,
		apply:   func(c *Config, s string) error { c.Model.APIKey = s; return nil },
		extract: func(c Config) string { return c.Model.APIKey },
	},
	{
		key: "model.base_model", typ: kString, env: "LMPC_BASE_MODEL",
		apply:   func(c *Config, s string) error { c.Model.BaseModel = s; return nil },
		extract: func(c Config) string { return c.Model.BaseModel },
	},
	{
		key: "model.fine_tuned_model", typ: kString, env: "LMPC_FINE_TUNED_MODEL",
		apply:   func(c *Config, s string) error { c.Model.FineTunedModel = s; return nil },
		extract: func(c Config) string { return c.Model.FineTunedModel },
	},
	{
		key: "model.temperature", typ: kFloat, env: "LMPC_TEMPERATURE",
		apply: func(c *Config, s string) error {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid temperature %q: %w", s, err)
			}
			c.Model.Temperature = f
			return nil
		},
		extract: func(c Config) string { return strconv.FormatFloat(c.Model.Temperature, 'g', -1, 64) },
	},
	{
		key: "search.rollouts", typ: kInt, env: "LMPC_ROLLOUTS",
		apply: func(c *Config, s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid rollout count %q", s)
			}
			c.Search.Rollouts = n
			return nil
		},
		extract: func(c Config) string { return strconv.Itoa(c.Search.Rollouts) },
	},
	{
		key: "search.feedback_budget", typ: kInt, env: "LMPC_FEEDBACK_BUDGET",
		apply: func(c *Config, s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid feedback budget %q", s)
			}
			c.Search.FeedbackBudget = n
			return nil
		},
		extract: func(c Config) string { return strconv.Itoa(c.Search.FeedbackBudget) },
	},
	{
		key: "server.port", typ: kInt, env: "LMPC_PORT",
		apply: func(c *Config, s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("invalid port %q", s)
			}
			c.Server.Port = n
			return nil
		},
		extract: func(c Config) string { return strconv.Itoa(c.Server.Port) },
	},
	{
		key: "storage.data_dir", typ: kString, env: "LMPC_DATA_DIR",
		apply:   func(c *Config, s string) error { c.Storage.DataDir = s; return nil },
		extract: func(c Config) string { return c.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "LMPC_LOG_LEVEL",
		apply:   func(c *Config, s string) error { c.Log.Level = s; return nil },
		extract: func(c Config) string { return c.Log.Level },
	},
}

func findKey(name string) (keySpec, bool) {
	for _, k := range keys {
		if k.key == name {
			return k, true
		}
	}
	return keySpec{}, false
}

func applyBackend(c *Config, b Backend) error {
	for _, k := range keys {
		if k.secret {
			continue
		}
		switch k.typ {
		case kInt:
			v, ok, err := b.GetInt(k.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", k.key, err)
			}
			if ok {
				if err := k.apply(c, strconv.Itoa(v)); err != nil {
					return err
				}
			}
		default:
			v, ok, err := b.GetString(k.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", k.key, err)
			}
			if ok {
				if err := k.apply(c, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	for _, k := range keys {
		v := os.Getenv(k.env)
		if v == "" {
			continue
		}
		if err := k.apply(c, v); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring %s: %v\n", k.env, err)
		}
	}
}
