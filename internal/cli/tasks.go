package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with checklist tasks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tasks in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()
			return writeOut(cmd, app, s.app.Tasks())
		},
	})
	return cmd
}

func newToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip a task's completion state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			t, err := s.app.Toggle(strings.TrimSpace(args[0]), time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, t)
		},
	}
}

// report feeds a non-tap state change through window protection, the same
// path a second client's update would take.
func newReportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "report <task-id> <true|false>",
		Short: "Report an external task state change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var completed bool
			switch strings.ToLower(strings.TrimSpace(args[1])) {
			case "true":
				completed = true
			case "false":
				completed = false
			default:
				return writeErr(cmd, errors.New("expected true or false"))
			}

			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			t, reverted, err := s.app.ReportExternalChange(strings.TrimSpace(args[0]), completed, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"task": t, "reverted": reverted})
		},
	}
}

func newScrollCmd(app *App) *cobra.Command {
	var hold time.Duration
	cmd := &cobra.Command{
		Use:   "scroll",
		Short: "Open the scroll protection window",
		Long: strings.TrimSpace(`
Open the scroll protection window, as a scrolling client would. With --hold
the command keeps the process alive past the debounce so the settle check
runs before exit.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			s.app.ReportScroll()
			if hold > 0 {
				time.Sleep(hold)
			}
			return writeOut(cmd, app, map[string]any{"windowActive": s.app.WindowActive()})
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", 0, "Keep the process alive for this long after signalling")
	return cmd
}

func newOrderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "order <task-id>...",
		Short: "Set the display order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			if err := s.app.SetOrder(args); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.app.Tasks())
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all completion state for a fresh day",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			s.app.Reset(time.Now())
			return writeOut(cmd, app, s.app.Progress())
		},
	}
}
