package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/lmpc/internal/config"
	"github.com/kalambet/lmpc/internal/llm"
)

var finetuneCmd = &cobra.Command{
	Use:   "finetune",
	Short: "Manage fine-tuning jobs on the model service",
}

var finetuneUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a training JSONL file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		client, err := newModelClient()
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening training file: %w", err)
		}
		defer f.Close()

		printStep("Uploading %s...", path)
		fileID, err := client.UploadFile(cmd.Context(), path, f)
		if err != nil {
			return err
		}

		printSuccess("Uploaded as %s", fileID)
		fmt.Println(fileID)
		return nil
	},
}

var finetuneCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a fine-tuning job on an uploaded file",
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, _ := cmd.Flags().GetString("file")
		model, _ := cmd.Flags().GetString("model")

		if fileID == "" {
			return fmt.Errorf("--file is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		if model == "" {
			model = cfg.Model.BaseModel
		}

		client := llm.NewClientWithBaseURL(cfg.Model.APIKey, cfg.Model.BaseURL)

		job, err := client.CreateFineTune(cmd.Context(), fileID, model)
		if err != nil {
			return err
		}

		printSuccess("Created fine-tune job %s (status: %s)", job.ID, job.Status)
		fmt.Println(job.ID)
		return nil
	},
}

var finetuneStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a fine-tuning job's status, optionally polling to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := args[0]
		wait, _ := cmd.Flags().GetBool("wait")
		interval, _ := cmd.Flags().GetDuration("interval")

		client, err := newModelClient()
		if err != nil {
			return err
		}

		var job llm.FineTuneJob
		if wait {
			job, err = client.WaitFineTune(cmd.Context(), jobID, interval, func(j llm.FineTuneJob) {
				printStep("Job %s: %s", j.ID, j.Status)
			})
		} else {
			job, err = client.GetFineTune(cmd.Context(), jobID)
		}
		if err != nil {
			return err
		}

		switch job.Status {
		case "succeeded":
			printSuccess("Job %s succeeded; fine-tuned model: %s", job.ID, job.FineTunedModel)
			printStep("Save it with: lmpc config set model.fine_tuned_model %s", job.FineTunedModel)
		case "failed", "cancelled":
			printError("Job %s %s: %s", job.ID, job.Status, job.Error.Message)
		default:
			printStep("Job %s: %s", job.ID, job.Status)
		}
		return nil
	},
}

func newModelClient() (*llm.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return llm.NewClientWithBaseURL(cfg.Model.APIKey, cfg.Model.BaseURL), nil
}

func init() {
	finetuneCreateCmd.Flags().String("file", "", "uploaded training file ID")
	finetuneCreateCmd.Flags().String("model", "", "base model to fine-tune (default from config)")
	finetuneStatusCmd.Flags().Bool("wait", false, "poll until the job reaches a terminal state")
	finetuneStatusCmd.Flags().Duration("interval", 30*time.Second, "polling interval with --wait")

	finetuneCmd.AddCommand(finetuneUploadCmd)
	finetuneCmd.AddCommand(finetuneCreateCmd)
	finetuneCmd.AddCommand(finetuneStatusCmd)
}
