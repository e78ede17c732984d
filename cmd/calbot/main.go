package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calbot/internal/app"
	"calbot/internal/config"
	"calbot/pkg/logx"
	"calbot/pkg/systemd"
)

var version = "dev"

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "calbot",
		Short:         "Telegram calendar bot with a daily schedule digest",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "path to a JSON or YAML config file (optional)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(newCheckCmd(f))
	return root
}

func newCheckCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the effective tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigManager(f.configPath, f.envFile).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok (timezone %s, prefix %q, %d authorized users)\n",
				cfg.Scheduler.Timezone, cfg.Commands.Prefix, len(cfg.Telegram.AuthorizedUsers))
			for _, t := range cfg.EffectiveTasks() {
				state := "enabled"
				if !t.IsEnabled() {
					state = "disabled"
				}
				fmt.Fprintf(out, "  %-20s %-8s %s %s", t.Name, t.Kind, t.Time, state)
				if t.ChannelID != 0 {
					fmt.Fprintf(out, " -> %d", t.ChannelID)
				}
				fmt.Fprintln(out)
			}
			if cfg.Storage != nil && cfg.Storage.Driver != "" {
				fmt.Fprintf(out, "storage: %s %s\n", cfg.Storage.Driver, cfg.Storage.Path)
			} else {
				fmt.Fprintln(out, "storage: disabled")
			}
			return nil
		},
	}
}

// stopReason classifies a shutdown. A signal cancels the supervisor too, so
// only a recorded error counts as fatal.
func stopReason(appErr error) app.StopReason {
	if appErr != nil {
		return app.StopFatalError
	}
	return app.StopSignal
}

func run(parent context.Context, f *rootFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boot := logx.NewConsole("info").With(logx.String("comp", "main"))

	a, err := app.New(ctx, config.NewConfigManager(f.configPath, f.envFile))
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}
	if _, err := systemd.Ready(); err != nil {
		boot.Warn("sd_notify ready failed", logx.Err(err))
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	reason := stopReason(a.Err())
	_, _ = systemd.Stopping()

	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return a.Err()
	}
	return nil
}
