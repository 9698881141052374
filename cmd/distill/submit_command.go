package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"distill/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var intent string
	var docType string
	var outputFormat string
	var provider string
	var local bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Queue a file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			fields := map[string]string{
				"intent":        intent,
				"doc_type":      docType,
				"output_format": outputFormat,
				"provider":      provider,
			}

			var task api.TaskView
			if local {
				task, err = client.SubmitLocal(cmd.Context(), path, fields)
			} else {
				task, err = client.SubmitUpload(cmd.Context(), path, fields)
			}
			if err != nil {
				return err
			}

			if wait {
				task, err = waitForTask(cmd.Context(), client, task.ID)
				if err != nil {
					return err
				}
			}

			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), task)
			}
			out := cmd.OutOrStdout()
			switch task.Status {
			case "completed":
				fmt.Fprintf(out, "Task %s completed: %s\n", task.ID, task.Filename)
			case "failed":
				fmt.Fprintf(out, "Task %s failed (%s): %s\n", task.ID, task.ErrorKind, task.ErrorMessage)
			default:
				fmt.Fprintf(out, "Queued task %s (%s)\n", task.ID, task.Filename)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&intent, "intent", "", "Analysis intent: content or style")
	cmd.Flags().StringVar(&docType, "doc-type", "", "Output document type: doc, skill, or both")
	cmd.Flags().StringVar(&outputFormat, "format", "", "Output format: markdown or json")
	cmd.Flags().StringVar(&provider, "provider", "", "Pin synthesis to one configured provider")
	cmd.Flags().BoolVar(&local, "local", false, "Submit a path the daemon can read instead of uploading")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the task reaches a terminal state")
	return cmd
}

func waitForTask(ctx context.Context, client *apiClient, id string) (api.TaskView, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		task, err := client.Task(ctx, id)
		if err != nil {
			return api.TaskView{}, err
		}
		if task.Status == "completed" || task.Status == "failed" {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return api.TaskView{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
