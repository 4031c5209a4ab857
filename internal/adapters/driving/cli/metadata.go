package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

var loadCmd = &cobra.Command{
	Use:   "load [path...]",
	Short: "Load local metadata documents",
	Long: `Load RDF documents into the backend. Directories are searched for documents
matching --pattern (every RDF suffix by default). The format of each file
is inferred from its suffix.

Examples:
  opencefadb load ./metadata
  opencefadb load ./metadata --pattern 'fans/**/*.ttl'
  opencefadb load fan.ttl extra.jsonld`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a query against the metadata graph",
	Long: `Run a read query in the backend's language: SPARQL for graphdb and sparql
profiles, SQL over the triples table for sqlite profiles. The query is read
from the argument, from --file, or from stdin when neither is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the profile, workspace and loaded documents",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var (
	loadPatterns []string
	loadClear    bool
	queryFile    string
	queryJSON    bool
)

func init() {
	loadCmd.Flags().StringSliceVarP(&loadPatterns, "pattern", "p", nil, "doublestar glob relative to each directory (repeatable)")
	loadCmd.Flags().BoolVar(&loadClear, "clear", false, "empty the backend before loading")
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "read the query from a file")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output rows as JSON")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statusCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		if loadClear {
			if err := s.Metadata.Clear(ctx); err != nil {
				return err
			}
		}

		var (
			files []domain.Document
			total int
			errs  []error
		)
		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				n, err := s.Metadata.LoadDirectory(ctx, path, loadPatterns)
				total += n
				if err != nil {
					errs = append(errs, err)
				}
				continue
			}
			format, err := domain.FormatFromPath(path)
			if err != nil {
				return err
			}
			files = append(files, domain.Document{Path: path, Format: format})
		}
		if len(files) > 0 {
			n, err := s.Metadata.Load(ctx, files)
			total += n
			if err != nil {
				errs = append(errs, err)
			}
		}

		cmd.Printf("Loaded %d statements\n", total)
		return mergeBatchErrors("load", errs)
	})
}

// mergeBatchErrors folds batch errors into one; any other error is
// returned as is.
func mergeBatchErrors(op string, errs []error) error {
	var (
		failures []domain.ItemError
		total    int
	)
	for _, err := range errs {
		var batch *domain.BatchError
		if !errors.As(err, &batch) {
			return err
		}
		failures = append(failures, batch.Failures...)
		total += batch.Total
	}
	return domain.NewBatchError(op, total, failures)
}

func readQuery(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case queryFile != "":
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return string(data), nil
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	text, err := readQuery(cmd, args)
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		rows, err := s.Metadata.Query(ctx, text, s.Metadata.Language())
		if err != nil {
			return err
		}

		columns := rowColumns(rows)
		if queryJSON {
			out := make([]map[string]string, len(rows))
			for i, row := range rows {
				out[i] = make(map[string]string, len(row))
				for name, term := range row {
					out[i][name] = term.Value
				}
			}
			return printJSON(cmd, out)
		}
		if len(rows) == 0 {
			cmd.Println("No results.")
			return nil
		}

		cells := make([][]string, len(rows))
		for i, row := range rows {
			cells[i] = make([]string, len(columns))
			for j, c := range columns {
				cells[i][j] = row.Value(c)
			}
		}
		renderTable(cmd, columns, cells)
		cmd.Printf("%d rows\n", len(rows))
		return nil
	})
}

// rowColumns returns the variables bound in any row, sorted.
func rowColumns(rows []domain.Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		status, err := s.Metadata.Status(ctx)
		if err != nil {
			return err
		}

		cmd.Printf("Profile:    %s\n", s.Profile.Name)
		cmd.Printf("Backend:    %s\n", status.Backend.Description())
		cmd.Printf("Workspace:  %s\n", s.Workspace.Root)
		cmd.Printf("Statements: %d\n", status.Triples)

		if len(status.Documents) == 0 {
			return nil
		}
		cmd.Println()
		rows := make([][]string, len(status.Documents))
		for i, d := range status.Documents {
			rows[i] = []string{d.Path, d.Format.String(), strconv.Itoa(d.Triples)}
		}
		renderTable(cmd, []string{"DOCUMENT", "FORMAT", "STATEMENTS"}, rows)
		return nil
	})
}
