package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"FeedbackBot/internal/app"
	"FeedbackBot/internal/usecase"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and both report schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd.Context())
			application, err := app.New(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer application.Close()
			return application.Run(cmd.Context())
		},
	}
}

func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe stored voice reports that have no transcript yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd.Context())
			application, err := app.New(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			done, err := application.Transcribe(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "transcribed %d report(s)\n", done)
			return nil
		},
	}
}

// printAttempts writes one line per delivery attempt and fails when a
// recipient never received the report.
func printAttempts(cmd *cobra.Command, attempts []usecase.DeliveryAttempt) error {
	final := map[int64]usecase.Outcome{}
	var order []int64
	for _, a := range attempts {
		line := fmt.Sprintf("%d\tattempt %d\t%s", a.RecipientID, a.Attempt, a.Outcome)
		if a.Err != nil {
			line += "\t" + a.Err.Error()
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
		if _, seen := final[a.RecipientID]; !seen {
			order = append(order, a.RecipientID)
		}
		final[a.RecipientID] = a.Outcome
	}

	failed := 0
	for _, id := range order {
		if final[id] != usecase.OutcomeDelivered {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d recipient(s) not delivered", failed, len(order))
	}
	return nil
}
