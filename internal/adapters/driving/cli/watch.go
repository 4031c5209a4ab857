package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driving/watch"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep the backend in sync with a directory of documents",
	Long: `Load every metadata document below a directory and reload when documents
are added, changed or removed. Runs until interrupted.

Defaults to the metadata directory of the workspace.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchPatterns []string
	watchDebounce time.Duration
)

func init() {
	watchCmd.Flags().StringSliceVarP(&watchPatterns, "pattern", "p", nil, "doublestar glob relative to the directory (repeatable)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "time to collect changes before reloading")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		dir := s.Workspace.MetadataDir()
		if len(args) == 1 {
			dir = args[0]
		}
		configs, err := s.Release.StoredConfigurations()
		if err != nil {
			return err
		}
		w, err := watch.New(s.Metadata, dir, watch.Options{
			Patterns: watchPatterns,
			Include:  configs,
			Debounce: watchDebounce,
			OnReload: func(n int, err error) {
				if err == nil {
					cmd.Printf("Loaded %d statements\n", n)
				}
			},
		})
		if err != nil {
			return err
		}
		cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)
		return w.Run(ctx)
	})
}
