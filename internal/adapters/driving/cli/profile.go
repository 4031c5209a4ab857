package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// workspaceBase holds default working directories; empty means
// ~/.opencefadb/workspaces.
var workspaceBase string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage session profiles",
	Long: `A profile selects the metadata backend, its connection parameters, the
working directory and the release catalog. Exactly one profile is active.`,
}

var profileAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create or replace a profile",
	Long: `Create or replace a profile. The first profile created becomes active.

Examples:
  # Embedded store, public catalog
  opencefadb profile add local

  # GraphDB repository
  opencefadb profile add lab --backend graphdb --endpoint http://localhost:7200 --repository cefadb

  # Any SPARQL 1.1 endpoint
  opencefadb profile add fuseki --backend sparql \
    --endpoint http://localhost:3030/ds/query \
    --update-endpoint http://localhost:3030/ds/update \
    --store-endpoint http://localhost:3030/ds/data`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileAdd,
}

var profileUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Select the active profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileUse,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runProfileList,
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a profile",
	Long:  `Remove a profile. Its working directory is left untouched; use reset for that.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileRemove,
}

// profileOpts are the flags of profile add.
var profileOpts struct {
	backend        string
	endpoint       string
	updateEndpoint string
	storeEndpoint  string
	repository     string
	graph          string
	username       string
	password       string
	askPassword    bool
	workdir        string
	catalogKind    string
	catalogID      string
	catalogURL     string
	token          string
	timeout        time.Duration
	use            bool
}

func init() {
	f := profileAddCmd.Flags()
	f.StringVarP(&profileOpts.backend, "backend", "b", string(domain.BackendSQLite), "metadata backend (sqlite, graphdb, sparql)")
	f.StringVar(&profileOpts.endpoint, "endpoint", "", "GraphDB base URL or SPARQL query endpoint")
	f.StringVar(&profileOpts.updateEndpoint, "update-endpoint", "", "SPARQL update endpoint")
	f.StringVar(&profileOpts.storeEndpoint, "store-endpoint", "", "SPARQL graph store endpoint")
	f.StringVar(&profileOpts.repository, "repository", "", "GraphDB repository id")
	f.StringVar(&profileOpts.graph, "graph", "", "named graph for loaded documents (default "+domain.DefaultGraph+")")
	f.StringVarP(&profileOpts.username, "username", "u", "", "backend user")
	f.StringVar(&profileOpts.password, "password", "", "backend password")
	f.BoolVar(&profileOpts.askPassword, "ask-password", false, "prompt for the backend password")
	f.StringVarP(&profileOpts.workdir, "workdir", "w", "", "working directory (default ~/.opencefadb/workspaces/<name>)")
	f.StringVar(&profileOpts.catalogKind, "catalog", "", "release catalog kind (zenodo, github, http)")
	f.StringVar(&profileOpts.catalogID, "catalog-id", "", "catalog identifier (Zenodo concept record, owner/repo)")
	f.StringVar(&profileOpts.catalogURL, "catalog-url", "", "catalog base URL")
	f.StringVar(&profileOpts.token, "token", "", "bearer token for the archive")
	f.DurationVar(&profileOpts.timeout, "timeout", 0, "timeout of single network calls")
	f.BoolVar(&profileOpts.use, "use", false, "make the profile active")

	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	rootCmd.AddCommand(profileCmd)
}

func defaultWorkdir(name string) (string, error) {
	base := workspaceBase
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		base = filepath.Join(home, ".opencefadb", "workspaces")
	}
	return filepath.Join(base, name), nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}

	name := args[0]
	workdir := profileOpts.workdir
	if workdir == "" {
		var err error
		if workdir, err = defaultWorkdir(name); err != nil {
			return err
		}
	} else if abs, err := filepath.Abs(workdir); err == nil {
		workdir = abs
	}

	password := profileOpts.password
	if profileOpts.askPassword {
		password = readPassword(cmd, "Password: ")
	}

	profile := domain.SessionProfile{
		Name:             name,
		Backend:          domain.BackendKind(profileOpts.backend),
		Endpoint:         profileOpts.endpoint,
		UpdateEndpoint:   profileOpts.updateEndpoint,
		StoreEndpoint:    profileOpts.storeEndpoint,
		Repository:       profileOpts.repository,
		Graph:            profileOpts.graph,
		Username:         profileOpts.username,
		Password:         password,
		WorkingDirectory: workdir,
		Catalog: domain.CatalogSettings{
			Kind:    domain.CatalogKind(profileOpts.catalogKind),
			ID:      profileOpts.catalogID,
			BaseURL: profileOpts.catalogURL,
		},
		AccessToken: profileOpts.token,
		Timeout:     profileOpts.timeout,
	}
	if err := profileService.Configure(profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if profileOpts.use {
		if err := profileService.Select(name); err != nil {
			return fmt.Errorf("failed to select profile: %w", err)
		}
	}

	cmd.Printf("Saved profile %s (%s, %s)\n", name, profile.Backend, workdir)
	return nil
}

func runProfileUse(cmd *cobra.Command, args []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}
	if err := profileService.Select(args[0]); err != nil {
		return fmt.Errorf("failed to select profile: %w", err)
	}
	cmd.Printf("Active profile: %s\n", args[0])
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}

	var (
		profile *domain.SessionProfile
		err     error
	)
	if len(args) == 1 {
		profile, err = profileService.Get(args[0])
	} else {
		profile, err = profileService.Active()
	}
	if err != nil {
		return err
	}

	cmd.Printf("Profile: %s\n\n", profile.Name)
	cmd.Printf("  Backend:    %s\n", profile.Backend.Description())
	if profile.Endpoint != "" {
		cmd.Printf("  Endpoint:   %s\n", profile.Endpoint)
	}
	if profile.UpdateEndpoint != "" {
		cmd.Printf("  Update:     %s\n", profile.UpdateEndpoint)
	}
	if profile.StoreEndpoint != "" {
		cmd.Printf("  Store:      %s\n", profile.StoreEndpoint)
	}
	if profile.Repository != "" {
		cmd.Printf("  Repository: %s\n", profile.Repository)
	}
	if profile.Backend.IsRemote() {
		cmd.Printf("  Graph:      %s\n", profile.GraphName())
	}
	if profile.Username != "" {
		cmd.Printf("  User:       %s\n", profile.Username)
		cmd.Printf("  Password:   %s\n", maskSecret(profile.Password))
	}
	cmd.Printf("  Workdir:    %s\n", profile.WorkingDirectory)
	if profile.Catalog.Kind != "" {
		cmd.Printf("  Catalog:    %s %s\n", profile.Catalog.Kind, profile.Catalog.ID)
		if profile.Catalog.BaseURL != "" {
			cmd.Printf("  Catalog URL: %s\n", profile.Catalog.BaseURL)
		}
	} else {
		cmd.Printf("  Catalog:    %s (default)\n", domain.DefaultCatalogID)
	}
	if profile.AccessToken != "" {
		cmd.Printf("  Token:      %s\n", maskSecret(profile.AccessToken))
	}
	if profile.Timeout > 0 {
		cmd.Printf("  Timeout:    %s\n", profile.Timeout)
	}
	return nil
}

func runProfileList(cmd *cobra.Command, _ []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}

	profiles, err := profileService.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(profiles) == 0 {
		cmd.Println("No profiles configured. Create one with: opencefadb profile add <name>")
		return nil
	}

	active := ""
	if p, err := profileService.Active(); err == nil {
		active = p.Name
	}

	rows := make([][]string, len(profiles))
	for i, p := range profiles {
		marker := ""
		if p.Name == active {
			marker = "*"
		}
		rows[i] = []string{marker, p.Name, p.Backend.String(), p.WorkingDirectory}
	}
	renderTable(cmd, []string{"", "NAME", "BACKEND", "WORKDIR"}, rows)
	return nil
}

func runProfileRemove(cmd *cobra.Command, args []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}
	if err := profileService.Remove(args[0]); err != nil {
		return fmt.Errorf("failed to remove profile: %w", err)
	}
	cmd.Printf("Removed profile: %s\n", args[0])
	return nil
}
