package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/lmpc/internal/collect"
	"github.com/kalambet/lmpc/internal/config"
	"github.com/kalambet/lmpc/internal/particle"
	"github.com/kalambet/lmpc/internal/storage"
)

var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Steer the model interactively by typing feedback",
	Long: `Steer the model interactively by typing feedback.

You play the user: after every model action the grid is rendered and
you type one line of feedback ("go north", "go south", "go east",
"go west", or "do not move"). The episode ends on success or when the
feedback budget runs out. With --save the episode is recorded in the
local store like any collected one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		policyName, _ := cmd.Flags().GetString("policy")
		modelOverride, _ := cmd.Flags().GetString("model")
		speaker, _ := cmd.Flags().GetString("speaker")
		save, _ := cmd.Flags().GetBool("save")

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

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		env := particle.NewInteractive(rng, os.Stdin, os.Stdout)
		runner := collect.NewRunner(env, pol, speaker)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		run := collect.Run{
			ID:        uuid.New().String(),
			Speaker:   speaker,
			Policy:    policyName,
			Episodes:  1,
			StartedAt: time.Now().UTC(),
		}

		ep, err := runner.Episode(ctx, run.ID, 0)
		if err != nil {
			return err
		}

		fmt.Println(env.Render())
		if ep.Success {
			printSuccess("Reached the %s in %d messages", ep.Goal, ep.ChatLength)
		} else {
			printWarning("Out of feedback budget; the goal was the %s", ep.Goal)
		}

		if save {
			store, err := storage.Open(cfg.Storage.DataDir)
			if err != nil {
				return fmt.Errorf("opening storage: %w", err)
			}
			defer store.Close()

			if err := saveCollected(store, run, []collect.Episode{ep}); err != nil {
				return err
			}
			printSuccess("Saved episode %s", ep.ID)
		}
		return nil
	},
}

func init() {
	playgroundCmd.Flags().String("policy", "lmpc", "policy to drive the agent: base or lmpc")
	playgroundCmd.Flags().String("model", "", "model name override (default from config)")
	playgroundCmd.Flags().String("speaker", "human", "speaker label recorded on the episode")
	playgroundCmd.Flags().Bool("save", false, "record the episode in the local store")
}
