package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/lmpc/internal/collect"
	"github.com/kalambet/lmpc/internal/config"
	"github.com/kalambet/lmpc/internal/llm"
	"github.com/kalambet/lmpc/internal/particle"
	"github.com/kalambet/lmpc/internal/policy"
	"github.com/kalambet/lmpc/internal/storage"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect episodes against the simulated environment",
	Long: `Collect episodes against the simulated environment.

The chosen policy queries the chat model for action snippets; the
environment answers with directional feedback until the episode
succeeds or runs out of feedback budget. Episodes are recorded in the
local store.

Examples:
  lmpc collect --episodes 50 --speaker alice
  lmpc collect --policy lmpc --episodes 20 --noise 0.2 --speaker alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, _ := cmd.Flags().GetInt("episodes")
		noise, _ := cmd.Flags().GetFloat64("noise")
		speaker, _ := cmd.Flags().GetString("speaker")
		policyName, _ := cmd.Flags().GetString("policy")
		modelOverride, _ := cmd.Flags().GetString("model")
		seed, _ := cmd.Flags().GetInt64("seed")

		if episodes < 1 {
			return fmt.Errorf("--episodes must be at least 1")
		}
		if noise < 0 || noise > 1 {
			return fmt.Errorf("--noise must be in [0,1]")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		setupLogging(cfg)

		pol, err := buildPolicy(cfg, policyName, modelOverride)
		if err != nil {
			return err
		}

		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		env := particle.New(rand.New(rand.NewSource(seed)))
		runner := collect.NewRunner(env, pol, speaker)

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("Collecting %d episodes (policy=%s, noise=%.2f)...", episodes, policyName, noise)
		run, collected, collectErr := runner.Collect(ctx, episodes, noise, policyName)

		// Episodes gathered before an abort are still worth keeping.
		if err := saveCollected(store, run, collected); err != nil {
			return err
		}
		if collectErr != nil {
			printWarning("Run aborted after %d episodes: %v", len(collected), collectErr)
			return collectErr
		}

		succeeded := 0
		for _, ep := range collected {
			if ep.Success {
				succeeded++
			}
		}
		printSuccess("Collected %d episodes (%d succeeded) in run %s", len(collected), succeeded, run.ID)
		return nil
	},
}

func init() {
	collectCmd.Flags().Int("episodes", 10, "number of episodes to collect")
	collectCmd.Flags().Float64("noise", 0, "probability of decoy feedback per turn")
	collectCmd.Flags().String("speaker", "sim", "speaker label recorded on each episode")
	collectCmd.Flags().String("policy", "base", "policy to drive the agent: base or lmpc")
	collectCmd.Flags().String("model", "", "model name override (default from config)")
	collectCmd.Flags().Int64("seed", 0, "RNG seed for the environment (0 = time-based)")
}

// buildPolicy wires the configured chat model behind the requested
// policy. The search policy insists on a fine-tuned model because the
// base model was never trained to role-play the feedback side.
func buildPolicy(cfg config.Config, policyName, modelOverride string) (policy.Policy, error) {
	client := llm.NewClientWithBaseURL(cfg.Model.APIKey, cfg.Model.BaseURL)

	switch policyName {
	case "base":
		model := modelOverride
		if model == "" {
			model = cfg.Model.BaseModel
		}
		return &policy.Base{
			Client:      client,
			Model:       model,
			Temperature: cfg.Model.Temperature,
		}, nil

	case "lmpc":
		model := modelOverride
		if model == "" {
			model = cfg.Model.FineTunedModel
		}
		if model == "" {
			return nil, fmt.Errorf("no fine-tuned model configured; set model.fine_tuned_model or pass --model")
		}
		return &policy.LMPC{
			Client:         client,
			Model:          model,
			Temperature:    cfg.Model.Temperature,
			Rollouts:       cfg.Search.Rollouts,
			FeedbackBudget: cfg.Search.FeedbackBudget,
		}, nil

	default:
		return nil, fmt.Errorf("unknown policy %q (want base or lmpc)", policyName)
	}
}

func saveCollected(store *storage.Store, run collect.Run, episodes []collect.Episode) error {
	if err := store.SaveRun(storage.Run{
		ID:        run.ID,
		Speaker:   run.Speaker,
		Policy:    run.Policy,
		Noise:     run.Noise,
		Episodes:  len(episodes),
		StartedAt: run.StartedAt,
	}); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	for _, ep := range episodes {
		msgs, err := json.Marshal(ep.Messages)
		if err != nil {
			return fmt.Errorf("marshalling episode %s: %w", ep.ID, err)
		}
		if err := store.SaveEpisode(storage.Episode{
			ID:           ep.ID,
			RunID:        ep.RunID,
			Speaker:      ep.Speaker,
			Goal:         ep.Goal,
			Noise:        ep.Noise,
			MessagesJSON: string(msgs),
			ChatLength:   ep.ChatLength,
			Success:      ep.Success,
			CreatedAt:    ep.CreatedAt,
		}); err != nil {
			return fmt.Errorf("saving episode %s: %w", ep.ID, err)
		}
	}
	return nil
}

func setupLogging(cfg config.Config) {
	level := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
