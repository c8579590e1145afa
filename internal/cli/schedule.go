package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"FeedbackBot/internal/usecase"
)

func newScheduleCmd() *cobra.Command {
	var (
		at    string
		count int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the upcoming daily and summary fire times",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd.Context())
			loc := rt.cfg.Reports.Location()

			now := time.Now()
			if at != "" {
				parsed, err := time.ParseInLocation("2006-01-02 15:04", at, loc)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = parsed
			}
			if count <= 0 {
				count = 1
			}

			s := usecase.NewReportScheduler(usecase.SchedulerDeps{Config: rt.cfg.Reports, Logger: rt.logger})
			out := cmd.OutOrStdout()

			from := now
			for i := 0; i < count; i++ {
				next, ok := s.NextDaily(from)
				if !ok {
					_, _ = fmt.Fprintln(out, "daily\tdisabled")
					break
				}
				_, _ = fmt.Fprintf(out, "daily\t%s\n", next.In(loc).Format(time.RFC3339))
				from = next
			}

			from = now
			for i := 0; i < count; i++ {
				next, ok := s.NextSummary(from)
				if !ok {
					_, _ = fmt.Fprintln(out, "summary\tunavailable")
					break
				}
				_, _ = fmt.Fprintf(out, "summary\t%s\n", next.In(loc).Format(time.RFC3339))
				from = next
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Compute from this local time (YYYY-MM-DD HH:MM) instead of now")
	cmd.Flags().IntVar(&count, "count", 1, "How many upcoming fires to list per schedule")
	return cmd
}
