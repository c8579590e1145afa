package cli

import (
	"github.com/spf13/cobra"

	"FeedbackBot/internal/app"
)

func newReportCmd() *cobra.Command {
	var chats []int64

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compile and send the daily report now",
		Long:  "Compile and send the daily report now. Without --chat it goes to the channel and every admin, like the scheduled run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd.Context())
			application, err := app.New(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer application.Close()
			return printAttempts(cmd, application.SendDaily(cmd.Context(), chats))
		},
	}
	cmd.Flags().Int64SliceVar(&chats, "chat", nil, "Deliver only to these chat ids")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var chats []int64

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Compile and send the PDF summary now",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd.Context())
			application, err := app.New(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer application.Close()
			return printAttempts(cmd, application.SendSummary(cmd.Context(), chats))
		},
	}
	cmd.Flags().Int64SliceVar(&chats, "chat", nil, "Deliver only to these chat ids")
	return cmd
}
