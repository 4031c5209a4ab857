package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

var fanCmd = &cobra.Command{
	Use:   "fan",
	Short: "Inspect fan descriptions",
	Long: `Inspect the description of a fan: its design parameters and the CAD
files published as its parts. A fan is given by identifier or IRI.`,
}

var fanPropertiesCmd = &cobra.Command{
	Use:   "properties <fan>",
	Short: "List the design parameters of a fan",
	Args:  cobra.ExactArgs(1),
	RunE:  runFanProperties,
}

var fanCADCmd = &cobra.Command{
	Use:   "cad <fan>",
	Short: "List or download the CAD files of a fan",
	Args:  cobra.ExactArgs(1),
	RunE:  runFanCAD,
}

var fanFlags struct {
	download bool
	json     bool
}

func init() {
	fanPropertiesCmd.Flags().BoolVar(&fanFlags.json, "json", false, "output as JSON")
	fanCADCmd.Flags().BoolVar(&fanFlags.json, "json", false, "output as JSON")
	fanCADCmd.Flags().BoolVarP(&fanFlags.download, "download", "d", false, "download the files into the workspace cache")

	fanCmd.AddCommand(fanPropertiesCmd)
	fanCmd.AddCommand(fanCADCmd)
	rootCmd.AddCommand(fanCmd)
}

type parameterJSON struct {
	Name  string            `json:"name,omitempty"`
	Value string            `json:"value,omitempty"`
	Unit  string            `json:"unit,omitempty"`
	IRI   string            `json:"iri"`
	Extra map[string]string `json:"extra,omitempty"`
}

func runFanProperties(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		params, err := s.Resolution.FanProperties(ctx, args[0])
		if err != nil {
			return err
		}
		if fanFlags.json {
			out := make([]parameterJSON, len(params))
			for i, p := range params {
				out[i] = parameterJSON{Name: p.Name, Value: p.Value, Unit: p.Unit, IRI: p.IRI}
				if len(p.Extra) > 0 {
					out[i].Extra = p.Extra
				}
			}
			return printJSON(cmd, out)
		}
		if len(params) == 0 {
			cmd.Printf("No parameters found for fan %s.\n", args[0])
			return nil
		}

		rows := make([][]string, len(params))
		for i, p := range params {
			name := p.Name
			if name == "" {
				name = p.IRI
			}
			rows[i] = []string{name, p.Value, p.Unit}
		}
		renderTable(cmd, []string{"PARAMETER", "VALUE", "UNIT"}, rows)
		return nil
	})
}

func runFanCAD(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		refs, err := s.Resolution.CADFiles(ctx, args[0])
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			cmd.Printf("No CAD files found for fan %s.\n", args[0])
			return nil
		}

		var files []domain.LocalDataFile
		if fanFlags.download {
			files, err = s.Resolution.Materialize(ctx, refs)
		}
		paths := make(map[string]string, len(files))
		for _, f := range files {
			paths[f.Reference.Locator] = f.Path
		}

		if fanFlags.json {
			out := make([]referenceJSON, len(refs))
			for i, r := range refs {
				out[i] = toReferenceJSON(r, paths[r.Locator])
			}
			if jerr := printJSON(cmd, out); jerr != nil {
				return jerr
			}
			return err
		}

		rows := make([][]string, len(refs))
		for i, r := range refs {
			loc := r.Locator
			if p, ok := paths[r.Locator]; ok {
				loc = p
			}
			rows[i] = []string{r.ID, r.MediaType, loc}
		}
		renderTable(cmd, []string{"ID", "MEDIA TYPE", "LOCATION"}, rows)
		printFailures(cmd, err)
		return err
	})
}
