package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tasks, progress, streak and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			out := map[string]any{
				"tasks":    s.app.Tasks(),
				"progress": s.app.Progress(),
				"streak":   s.app.StreakRecord(),
			}
			if u, ok := s.profiles.Session(); ok {
				out["username"] = u
			}
			return writeOut(cmd, app, out)
		},
	}
}
