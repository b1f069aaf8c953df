package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eviefp/hcs/internal/config"
	appLog "github.com/eviefp/hcs/internal/log"
	"github.com/eviefp/hcs/internal/store"
	"github.com/eviefp/hcs/internal/store/hasura"
	"github.com/eviefp/hcs/internal/store/sqlite"
)

// flagConfig holds global flag values.
type flagConfig struct {
	configPath string
	debug      bool
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags flagConfig

	root := &cobra.Command{
		Use:           "hcs",
		Short:         "Import ICS feeds and show today's, tomorrow's and the next event",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.debug {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath(), "Path to config file")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	var xmobar bool
	next := &cobra.Command{
		Use:   "next",
		Short: "Show the next event within 24 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app) error { return a.next(cmd.Context(), xmobar) })
		},
	}
	next.Flags().BoolVar(&xmobar, "xmobar", false, "Compact output with xmobar markup")

	var watch bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored events over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app) error { return a.serve(cmd.Context(), watch) })
		},
	}
	serve.Flags().BoolVar(&watch, "watch", false, "Also re-import on the refresh schedule")

	root.AddCommand(
		&cobra.Command{
			Use:   "import NAME",
			Short: "Replace stored events of the named source with its current feed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(a *app) error { return a.importSource(cmd.Context(), args[0]) })
			},
		},
		&cobra.Command{
			Use:   "today",
			Short: "List today's events",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(a *app) error { return a.listEvents(cmd.Context(), a.selector.Today) })
			},
		},
		&cobra.Command{
			Use:   "tomorrow",
			Short: "List tomorrow's events",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(a *app) error { return a.listEvents(cmd.Context(), a.selector.Tomorrow) })
			},
		},
		next,
		serve,
		&cobra.Command{
			Use:   "watch",
			Short: "Re-import every configured source on the refresh schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(a *app) error { return a.watch(cmd.Context()) })
			},
		},
	)

	return root
}

// withApp loads the config, wires the app, runs fn and logs a failure.
func withApp(cmd *cobra.Command, flags flagConfig, fn func(*app) error) error {
	a, err := newApp(flags.configPath, cmd.OutOrStdout())
	if err != nil {
		appLog.Error("startup failed", err, "config_path", flags.configPath)
		return err
	}
	defer a.close()

	if err := fn(a); err != nil {
		appLog.Error(cmd.Name()+" failed", err)
		return err
	}
	return nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverHasura:
		return hasura.New(cfg.URL, cfg.AdminSecret, nil), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// isTerminal reports whether w is a terminal; colour is only used then.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

