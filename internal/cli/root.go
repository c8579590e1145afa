// Package cli exposes the bot and its report jobs as cobra commands.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/logging"
)

type runtimeKey struct{}

type runtime struct {
	cfg    config.Config
	logger *slog.Logger
}

func runtimeFrom(ctx context.Context) runtime {
	rt, _ := ctx.Value(runtimeKey{}).(runtime)
	return rt
}

// NewRootCmd builds the feedbackbot command tree.
func NewRootCmd(version string) *cobra.Command {
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:          "feedbackbot",
		Short:        "Restaurant feedback bot with scheduled review reports",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadPath(configPath)
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, runtime{cfg: cfg, logger: logger}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (env: FEEDBACKBOT_CONFIG)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newTranscribeCmd())
	cmd.AddCommand(newScheduleCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}
	return cmd
}
