package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalambet/lmpc/internal/config"
	"github.com/kalambet/lmpc/internal/storage"
	"github.com/kalambet/lmpc/internal/transcript"
)

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export collected episodes as fine-tuning JSONL",
	Long: `Export collected episodes as fine-tuning JSONL.

Each line is one {"messages": [...]} object ending in a success
marker. With --relabel every message is rewritten to a single role,
which conditions the fine-tuned model to speak both sides of the
dialogue as one identity.

Examples:
  lmpc export --speaker alice --success-only --relabel user --output train.jsonl
  lmpc export > all.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		speaker, _ := cmd.Flags().GetString("speaker")
		successOnly, _ := cmd.Flags().GetBool("success-only")
		relabel, _ := cmd.Flags().GetString("relabel")
		output, _ := cmd.Flags().GetString("output")

		if relabel != "" && relabel != transcript.RoleUser && relabel != transcript.RoleAssistant {
			return fmt.Errorf("--relabel must be %q or %q", transcript.RoleUser, transcript.RoleAssistant)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		episodes, err := store.ListEpisodes(speaker, 0, 0)
		if err != nil {
			return fmt.Errorf("listing episodes: %w", err)
		}

		var records [][]transcript.Message
		for _, ep := range episodes {
			if successOnly && !ep.Success {
				continue
			}
			var msgs []transcript.Message
			if err := json.Unmarshal([]byte(ep.MessagesJSON), &msgs); err != nil {
				return fmt.Errorf("episode %s has corrupt messages: %w", ep.ID, err)
			}
			if relabel != "" {
				msgs = transcript.Relabel(msgs, relabel)
			}
			records = append(records, msgs)
		}

		writer := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}

		if err := transcript.WriteJSONL(writer, records); err != nil {
			return fmt.Errorf("writing JSONL: %w", err)
		}

		if output != "" {
			printSuccess("Exported %d episodes to %s", len(records), output)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("speaker", "", "only export episodes with this speaker label")
	exportCmd.Flags().Bool("success-only", false, "only export successful episodes")
	exportCmd.Flags().String("relabel", "", "rewrite every message to one role (user or assistant)")
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- metrics ---

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show success rate and chat length per speaker and noise level",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		metrics, err := store.Metrics()
		if err != nil {
			return fmt.Errorf("computing metrics: %w", err)
		}
		if len(metrics) == 0 {
			fmt.Println("No episodes collected yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SPEAKER\tNOISE\tEPISODES\tSUCCESS\tMEAN CHAT LENGTH")
		for _, m := range metrics {
			fmt.Fprintf(w, "%s\t%.2f\t%d\t%.1f%%\t%.1f\n",
				m.Speaker, m.Noise, m.Episodes, m.SuccessRate*100, m.MeanChatLength)
		}
		return w.Flush()
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
