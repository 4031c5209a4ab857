package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

const intentHelp = `An intent is a list of key=value terms, given as arguments or flags:

  fan=<identifier>             fan the data describes
  quantity=<standard name>     measured quantity
  condition.<name>=<value>     operating condition, e.g. condition.rotational_speed=600
  creator=<name>               agent that produced the data
  dataset=<identifier>         restrict to one dataset
  media=<media type>           keep only files of this type`

var resolveCmd = &cobra.Command{
	Use:   "resolve [term...]",
	Short: "Find data files matching an intent",
	Long: `Resolve an intent into data file references using the loaded metadata.

` + intentHelp + `

Examples:
  opencefadb resolve fan=Unit-42
  opencefadb resolve --fan Unit-42 --condition rotational_speed=600 --media application/x-hdf5`,
	RunE: runResolve,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [term...]",
	Short: "Download data files matching an intent",
	Long: `Resolve an intent and download the matching files into the workspace cache.
Files already cached with a matching checksum are not downloaded again.

` + intentHelp,
	RunE: runFetch,
}

// intentFlags are shared by resolve and fetch.
var intentFlags struct {
	fan        string
	quantity   string
	conditions map[string]string
	creator    string
	dataset    string
	media      string
	json       bool
}

func init() {
	for _, c := range []*cobra.Command{resolveCmd, fetchCmd} {
		f := c.Flags()
		f.StringVar(&intentFlags.fan, "fan", "", "fan identifier")
		f.StringVarP(&intentFlags.quantity, "quantity", "q", "", "standard name of the measured quantity")
		f.StringToStringVarP(&intentFlags.conditions, "condition", "C", nil, "operating condition name=value (repeatable)")
		f.StringVar(&intentFlags.creator, "creator", "", "name of the data creator")
		f.StringVar(&intentFlags.dataset, "dataset", "", "dataset identifier")
		f.StringVarP(&intentFlags.media, "media", "m", "", "media type of the files")
		f.BoolVar(&intentFlags.json, "json", false, "output as JSON")
	}
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(fetchCmd)
}

// buildIntent parses the argument terms and applies the flags over them.
func buildIntent(args []string) (domain.Intent, error) {
	intent, err := domain.ParseIntent(strings.Join(args, " "))
	if err != nil {
		return domain.Intent{}, err
	}
	if intentFlags.fan != "" {
		intent.Fan = intentFlags.fan
	}
	if intentFlags.quantity != "" {
		intent.Quantity = intentFlags.quantity
	}
	if intentFlags.creator != "" {
		intent.Creator = intentFlags.creator
	}
	if intentFlags.dataset != "" {
		intent.Dataset = intentFlags.dataset
	}
	if intentFlags.media != "" {
		intent.MediaType = domain.ParseMediaType(intentFlags.media)
	}
	for k, v := range intentFlags.conditions {
		if intent.Conditions == nil {
			intent.Conditions = make(map[string]string)
		}
		intent.Conditions[k] = v
	}
	return intent, nil
}

type referenceJSON struct {
	ID        string `json:"id"`
	Dataset   string `json:"dataset,omitempty"`
	Locator   string `json:"locator"`
	MediaType string `json:"media_type,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	Title     string `json:"title,omitempty"`
	Path      string `json:"path,omitempty"`
}

func toReferenceJSON(ref domain.DataFileReference, path string) referenceJSON {
	out := referenceJSON{
		ID:        ref.ID,
		Dataset:   ref.Dataset,
		Locator:   ref.Locator,
		MediaType: ref.MediaType,
		Title:     ref.Title,
		Path:      path,
	}
	if !ref.Checksum.IsZero() {
		out.Checksum = ref.Checksum.String()
	}
	return out
}

func runResolve(cmd *cobra.Command, args []string) error {
	intent, err := buildIntent(args)
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		refs, err := s.Resolution.Resolve(ctx, intent)
		if err != nil {
			return err
		}
		if intentFlags.json {
			out := make([]referenceJSON, len(refs))
			for i, r := range refs {
				out[i] = toReferenceJSON(r, "")
			}
			return printJSON(cmd, out)
		}
		if len(refs) == 0 {
			cmd.Printf("No data files match %q.\n", intent.String())
			return nil
		}

		rows := make([][]string, len(refs))
		for i, r := range refs {
			rows[i] = []string{r.ID, r.MediaType, r.Locator}
		}
		renderTable(cmd, []string{"ID", "MEDIA TYPE", "LOCATOR"}, rows)
		cmd.Printf("%d data files\n", len(refs))
		return nil
	})
}

func runFetch(cmd *cobra.Command, args []string) error {
	intent, err := buildIntent(args)
	if err != nil {
		return err
	}
	if intent.IsEmpty() {
		return fmt.Errorf("%w: refusing to fetch every data file, give at least one intent term", domain.ErrInvalidInput)
	}
	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		refs, err := s.Resolution.Resolve(ctx, intent)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			cmd.Printf("No data files match %q.\n", intent.String())
			return nil
		}

		files, err := s.Resolution.Materialize(ctx, refs)
		if intentFlags.json {
			out := make([]referenceJSON, len(files))
			for i, f := range files {
				out[i] = toReferenceJSON(f.Reference, f.Path)
			}
			if jerr := printJSON(cmd, out); jerr != nil {
				return jerr
			}
			return err
		}

		for _, f := range files {
			cmd.Println(f.Path)
		}
		printFailures(cmd, err)
		return err
	})
}
