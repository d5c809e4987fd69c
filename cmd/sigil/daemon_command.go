package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sigil/internal/daemon"
	"sigil/internal/deps"
	"sigil/internal/logging"
	"sigil/internal/queue"
	"sigil/internal/worker"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the queue-processing daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			if missing := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
				logger.Warn("required tools unavailable", "tools", missing)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}

			w := worker.New(cfg, logger)
			d, err := daemon.New(cfg, store, w, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer func() { _ = d.Close() }()

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(signalCtx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Daemon running; press Ctrl+C to stop")
			<-signalCtx.Done()
			d.Stop()
			return nil
		},
	}
}
