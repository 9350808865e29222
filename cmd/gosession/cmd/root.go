package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

var (
	configPath string
	serverURL  string
	storePath  string
	mode       string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gosession",
	Short: "Session manager CLI for the gym API",
	Long: `gosession logs in to the gym API as a member, admin or trainer and keeps
the resulting sessions in a local file. Use it to inspect, validate, switch and
clear sessions, and to send authenticated requests.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (GOSESSION_* variables override it)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Auth API base URL")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Session file (default $XDG_CONFIG_HOME/gosession/sessions.json)")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "Deployment mode: development, staging, production or test")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log manager activity to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(switchRoleCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(requestCmd)
}

// newManager builds a Manager from flags and config. The CLI always uses the
// file store unless the config asks for redis, since each invocation is a new
// process.
func newManager() (*goSession.Manager, goSession.Config, error) {
	cfg, err := goSession.LoadConfig(configPath)
	if err != nil {
		return nil, cfg, err
	}
	if serverURL != "" {
		cfg.API.BaseURL = serverURL
	}
	if mode != "" {
		parsed, ok := policy.ParseMode(mode)
		if !ok {
			return nil, cfg, fmt.Errorf("unknown mode %q", mode)
		}
		cfg.Mode = parsed
	}
	if cfg.Store.Backend == goSession.StoreBackendMemory {
		cfg.Store.Backend = goSession.StoreBackendFile
	}
	if storePath != "" {
		cfg.Store.FilePath = storePath
	}

	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}

	m, err := goSession.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithNavigator(goSession.NavigatorFunc(func(_ context.Context, reason goSession.Reason) {
			pterm.Warning.Printf("Session ended (%s). Run `gosession login` to sign in again.\n", reason)
		})).
		WithNotifier(goSession.NotifierFunc(func(_ context.Context, role session.Role) {
			pterm.Error.Printf("The %s account no longer exists.\n", role)
		})).
		Build()
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create session manager: %w", err)
	}
	return m, cfg, nil
}

func parseRole(s string) (session.Role, error) {
	role, ok := session.ParseRole(s)
	if !ok {
		return "", fmt.Errorf("unknown role %q (want member, admin or trainer)", s)
	}
	return role, nil
}
