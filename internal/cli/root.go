package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"isru-daily/internal/checklist"
	"isru-daily/internal/format"
	"isru-daily/internal/profile"
	"isru-daily/internal/store"
	"isru-daily/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	RelayURL   string
	PrettyJSON bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "isru-daily",
		Short:        "ISRU daily mission checklist (local-first) CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  isru-daily

  # Scriptable commands
  isru-daily status
  isru-daily toggle ten-free-throws

  # Serve the web UI
  isru-daily web --addr 127.0.0.1:4747
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("ISRU_DAILY_DIR", ""), "Path to store dir (default: ~/.isru-daily)")
	cmd.PersistentFlags().StringVar(&app.RelayURL, "relay", envOr("ISRU_DAILY_RELAY", ""), "Profile relay endpoint (overrides config.json relayUrl)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newScrollCmd(app))
	cmd.AddCommand(newOrderCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newStreakCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newWebCmd(app))

	return cmd
}

// session is everything a command needs: the open store, the assembled
// checklist app, and the profile cache wired in as progress sink.
type session struct {
	st       *store.Store
	app      *checklist.App
	profiles *profile.Cache
	cfg      store.GlobalConfig
}

func (s *session) close() {
	// A mid-scroll exit must not leave the store behind the screen.
	s.app.SettleNow()
	_ = s.st.Close()
}

func openSession(app *App) (*session, error) {
	dir := strings.TrimSpace(app.Dir)
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	cfg, err := store.LoadConfig(dir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dir)
	if err != nil {
		return nil, err
	}

	defs, err := checklist.LoadDefinitions(dir)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	debounce := time.Duration(cfg.SettleDebounceMs) * time.Millisecond
	ca := checklist.New(st, defs, debounce)

	relay := strings.TrimSpace(app.RelayURL)
	if relay == "" {
		relay = strings.TrimSpace(cfg.RelayURL)
	}
	profiles := profile.NewCache(st, profile.NewClient(relay))
	profiles.Restore()
	ca.SetSink(profiles)

	if err := ca.Load(time.Now()); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &session{st: st, app: ca, profiles: profiles, cfg: cfg}, nil
}

func runTUI(app *App) error {
	s, err := openSession(app)
	if err != nil {
		return err
	}
	defer s.close()
	return tui.Run(s.app, s.profiles)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.WriteData(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
