package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"distill/internal/daemon"
	"distill/internal/logging"
	"distill/internal/notifications"
	"distill/internal/tasks"
	"distill/internal/workflow"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the distill daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare directories: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			for _, warning := range cfg.Warnings() {
				logger.Warn(warning)
			}

			store, err := tasks.Open(cfg)
			if err != nil {
				return fmt.Errorf("open task store: %w", err)
			}

			seq := workflow.NewSequencer(cfg, logger)
			runner := workflow.NewRunner(cfg, store, seq, notifications.NewService(cfg), logger)
			d, err := daemon.New(cfg, store, runner, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "distill daemon listening on %s\n", d.Addr())

			<-runCtx.Done()
			return nil
		},
	}
}
