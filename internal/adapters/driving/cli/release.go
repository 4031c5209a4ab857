package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List published releases",
	Long:  `List the releases of the profile's catalog, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runVersions,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Download a release and load its metadata",
	Long: `Acquire a release configuration, download every metadata document it
lists into the working directory and load them into the backend.

Without flags the latest release of the catalog is used. Documents that
cannot be fetched or parsed are reported; the others are still loaded.

Examples:
  opencefadb init
  opencefadb init --version 1.3
  opencefadb init --config ./release.ttl --clear`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	versionsJSON bool
	initOpts     driving.InitOptions
)

func init() {
	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "output releases as JSON")

	f := initCmd.Flags()
	f.StringVar(&initOpts.Version, "version", "", "release to initialise (default latest)")
	f.StringVarP(&initOpts.ConfigPath, "config", "c", "", "local release configuration instead of the catalog")
	f.StringVar(&initOpts.Format, "format", "", "configuration syntax when the suffix is not conclusive (yaml, turtle, jsonld)")
	f.BoolVarP(&initOpts.Force, "force", "f", false, "download documents again")
	f.BoolVar(&initOpts.Clear, "clear", false, "empty the backend before loading")
	initCmd.MarkFlagsMutuallyExclusive("version", "config")

	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(initCmd)
}

func runVersions(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		versions, err := s.Release.Versions(ctx)
		if err != nil {
			return err
		}
		if versionsJSON {
			return printJSON(cmd, versions)
		}
		if len(versions) == 0 {
			cmd.Println("No releases published.")
			return nil
		}

		rows := make([][]string, len(versions))
		for i, v := range versions {
			published := ""
			if !v.Published.IsZero() {
				published = v.Published.Format("2006-01-02")
			}
			rows[i] = []string{v.Version, published, v.Locator}
		}
		renderTable(cmd, []string{"VERSION", "PUBLISHED", "CONFIGURATION"}, rows)
		return nil
	})
}

func runInit(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		result, err := s.Release.Init(ctx, initOpts)
		if result != nil {
			cmd.Printf("Release %s initialised in %s\n", result.Version, s.Workspace.Root)
			cmd.Printf("  Configuration: %s\n", result.ConfigPath)
			cmd.Printf("  Documents:     %d of %d fetched\n", result.Fetched, result.Documents)
			cmd.Printf("  Statements:    %d\n", result.Triples)
		}
		printFailures(cmd, err)
		return err
	})
}

// printFailures lists the items of a batch error, if err is one.
func printFailures(cmd *cobra.Command, err error) {
	var batch *domain.BatchError
	if !errors.As(err, &batch) {
		return
	}
	cmd.Printf("\n%d of %d failed:\n", len(batch.Failures), batch.Total)
	for _, f := range batch.Failures {
		cmd.Printf("  %s: %v\n", f.ID, f.Err)
	}
}
