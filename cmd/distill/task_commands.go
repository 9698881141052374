package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"distill/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			task, err := client.Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), task)
			}

			rows := [][]string{
				{"ID", task.ID},
				{"File", task.Filename},
				{"Status", task.Status},
				{"Progress", strconv.Itoa(task.Progress) + "%"},
			}
			if task.StepLabel != "" {
				rows = append(rows, []string{"Step", task.StepLabel})
			}
			if task.ErrorKind != "" {
				rows = append(rows, []string{"Error kind", task.ErrorKind})
			}
			if task.ErrorMessage != "" {
				rows = append(rows, []string{"Error", task.ErrorMessage})
			}
			if len(task.Result) > 0 {
				rows = append(rows, []string{"Result", string(task.Result)})
			}
			if task.UpdatedAt != "" {
				rows = append(rows, []string{"Updated", task.UpdatedAt})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			views, err := client.Tasks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if filter := strings.TrimSpace(status); filter != "" {
				filtered := views[:0]
				for _, view := range views {
					if view.Status == filter {
						filtered = append(filtered, view)
					}
				}
				views = filtered
			}

			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), api.TaskListResponse{Tasks: views})
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				detail := view.StepLabel
				if view.Status == "failed" {
					detail = view.ErrorMessage
				}
				rows = append(rows, []string{
					view.ID,
					truncateCell(view.Filename, 40),
					view.Status,
					strconv.Itoa(view.Progress) + "%",
					truncateCell(detail, 48),
					view.UpdatedAt,
				})
			}
			headers := []string{"ID", "File", "Status", "Progress", "Detail", "Updated"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of tasks to show")
	cmd.Flags().StringVar(&status, "status", "", "Only show tasks with this status")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health and task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), health)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: %s\n", health.Status)
			fmt.Fprintf(out, "Tasks: %d total, %d queued, %d processing, %d completed, %d failed\n",
				health.Total, health.Queued, health.Processing, health.Completed, health.Failed)
			return nil
		},
	}
}
