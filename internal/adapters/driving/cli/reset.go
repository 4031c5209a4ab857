package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the working directory of a profile",
	Long: `Remove the working directory (configuration, metadata documents and cached
data files) of the active profile. Remote backends are shared with other
users and are only cleared with --clear-backend. With --forget-profiles all
profiles are deleted as well.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var resetOpts struct {
	yes            bool
	clearBackend   bool
	forgetProfiles bool
}

func init() {
	f := resetCmd.Flags()
	f.BoolVarP(&resetOpts.yes, "yes", "y", false, "do not ask for confirmation")
	f.BoolVar(&resetOpts.clearBackend, "clear-backend", false, "also empty the metadata backend")
	f.BoolVar(&resetOpts.forgetProfiles, "forget-profiles", false, "also delete every profile")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if sessionFactory == nil {
		return errors.New("session factory not configured")
	}
	profile, err := sessionFactory.Profile(profileFlag)
	if err != nil {
		return err
	}

	if !resetOpts.yes {
		if !stdinIsTerminal() {
			return fmt.Errorf("%w: not a terminal, pass --yes to reset", domain.ErrInvalidInput)
		}
		question := fmt.Sprintf("Remove %s", profile.WorkingDirectory)
		if resetOpts.clearBackend {
			question += fmt.Sprintf(" and clear the %s backend", profile.Backend)
		}
		if !confirm(cmd, question+"?") {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	err = sessionFactory.Reset(ctx, *profile, services.ResetOptions{
		ClearBackend:   resetOpts.clearBackend,
		ForgetProfiles: resetOpts.forgetProfiles,
	})
	if err != nil {
		return err
	}
	cmd.Printf("Reset profile %s\n", profile.Name)
	return nil
}
