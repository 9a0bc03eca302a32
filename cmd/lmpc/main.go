package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "lmpc",
	Short:   "Receding-horizon dialogue search over a 2D particle task",
	Version: version,
	Long: `lmpc collects dialogue episodes of a particle-steering task, trains a
chat model on them, and decodes with receding-horizon rollout search.

Typical workflow:
  lmpc collect --episodes 50 --speaker alice      collect demonstrations
  lmpc export --output train.jsonl                export fine-tuning data
  lmpc finetune upload train.jsonl                upload training file
  lmpc finetune create --file <id>                start a fine-tune job
  lmpc collect --policy lmpc --model ft:...       collect with search policy
  lmpc metrics                                    compare policies`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(finetuneCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(playgroundCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
