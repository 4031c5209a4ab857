// Package cli implements the opencefadb command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/metrics"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Services injected by main.
var (
	profileService driving.ProfileService
	sessionFactory *services.SessionFactory
	appMetrics     *metrics.Metrics
)

// Global flags.
var (
	profileFlag  string
	logLevelFlag string
	verboseFlag  bool
	metricsFile  string
)

var rootCmd = &cobra.Command{
	Use:   "opencefadb",
	Short: "Query and fetch data of the open centrifugal fan database",
	Long: `opencefadb acquires a release of the centrifugal fan database, loads its
metadata into a graph backend and resolves semantic intents (fan, measured
quantity, operating conditions) into data files that it downloads on demand.

Start by creating a profile, then initialise it:

  opencefadb profile add local --backend sqlite
  opencefadb init
  opencefadb resolve fan=Unit-42 condition.rotational_speed=600`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: applyGlobalFlags,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&profileFlag, "profile", "P", "", "profile to use instead of the active one")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "print debug messages")
	flags.StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")
}

// SetServices injects the services the commands use.
func SetServices(profiles driving.ProfileService, sessions *services.SessionFactory, m *metrics.Metrics) {
	profileService = profiles
	sessionFactory = sessions
	appMetrics = m
}

// SetVersion overrides the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Metrics are written even when the
// command fails.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if merr := appMetrics.WriteTextfile(metricsFile); merr != nil {
		logger.Error("%v", merr)
		if err == nil {
			err = merr
		}
	}
	return err
}

func applyGlobalFlags(_ *cobra.Command, _ []string) error {
	if logLevelFlag != "" {
		level, err := logger.ParseLevel(logLevelFlag)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		logger.SetLevel(level)
	}
	if verboseFlag {
		logger.SetVerbose(true)
	}
	return nil
}

// withSession opens a session for the selected profile, runs fn and
// closes the session.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *services.Session) error) error {
	if sessionFactory == nil {
		return errors.New("session factory not configured")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := sessionFactory.Open(ctx, profileFlag)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("closing session: %v", cerr)
		}
	}()
	return fn(ctx, session)
}

// Exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitUsage   = 2
	ExitState   = 3
	ExitPartial = 4
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var (
		batch    *domain.BatchError
		stateErr *domain.StateError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &batch):
		return ExitPartial
	case errors.As(err, &stateErr):
		return ExitState
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType), domain.IsQuerySyntax(err):
		return ExitUsage
	default:
		return ExitError
	}
}
