package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// IntentInput is the input schema of the resolve and fetch tools.
type IntentInput struct {
	Intent     string            `json:"intent,omitempty" jsonschema:"intent expression such as 'fan=Unit-42 condition.rotational_speed=600'"`
	Fan        string            `json:"fan,omitempty" jsonschema:"identifier of the fan the data describes"`
	Quantity   string            `json:"quantity,omitempty" jsonschema:"standard name of the measured quantity"`
	Conditions map[string]string `json:"conditions,omitempty" jsonschema:"operating conditions as standard name to value"`
	Creator    string            `json:"creator,omitempty" jsonschema:"name of the agent that produced the data"`
	Dataset    string            `json:"dataset,omitempty" jsonschema:"dataset identifier to restrict the search to"`
	MediaType  string            `json:"media_type,omitempty" jsonschema:"keep only files of this media type"`
}

// ResolveOutput is the output schema of the resolve tool.
type ResolveOutput struct {
	References []ReferenceOutput `json:"references"`
	Count      int               `json:"count"`
}

// ReferenceOutput represents one resolved data file.
type ReferenceOutput struct {
	ID        string `json:"id"`
	Dataset   string `json:"dataset,omitempty"`
	Locator   string `json:"locator"`
	MediaType string `json:"media_type,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	Title     string `json:"title,omitempty"`
}

// FetchOutput is the output schema of the fetch tool.
type FetchOutput struct {
	Files    []FileOutput `json:"files"`
	Failures []string     `json:"failures,omitempty"`
}

// FileOutput is a data file available locally.
type FileOutput struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// QueryInput is the input schema of the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"query in the backend's language (SPARQL or SQL)"`
}

// QueryOutput is the output schema of the query tool.
type QueryOutput struct {
	Language string              `json:"language"`
	Columns  []string            `json:"columns"`
	Rows     []map[string]string `json:"rows"`
	Count    int                 `json:"count"`
}

// FanInput is the input schema of the fan_properties tool.
type FanInput struct {
	Fan string `json:"fan" jsonschema:"fan identifier or IRI"`
}

// FanPropertiesOutput is the output schema of the fan_properties tool.
type FanPropertiesOutput struct {
	Parameters []ParameterOutput `json:"parameters"`
	CADFiles   []ReferenceOutput `json:"cad_files"`
}

// ParameterOutput is one fan parameter.
type ParameterOutput struct {
	Name  string            `json:"name,omitempty"`
	Value string            `json:"value,omitempty"`
	Unit  string            `json:"unit,omitempty"`
	IRI   string            `json:"iri"`
	Extra map[string]string `json:"extra,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve",
		Description: "Find data files of the fan database matching a semantic intent",
	}, s.handleResolve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fetch",
		Description: "Resolve an intent and download the matching data files into the local cache",
	}, s.handleFetch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fan_properties",
		Description: "List the design parameters and CAD files of a fan",
	}, s.handleFanProperties)

	if s.ports.Metadata != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "query",
			Description: "Run a read query against the loaded metadata graph",
		}, s.handleQuery)
	}
}

// intent merges the expression with the structured fields; fields win.
func (in IntentInput) intent() (domain.Intent, error) {
	intent, err := domain.ParseIntent(in.Intent)
	if err != nil {
		return domain.Intent{}, err
	}
	if in.Fan != "" {
		intent.Fan = in.Fan
	}
	if in.Quantity != "" {
		intent.Quantity = in.Quantity
	}
	if in.Creator != "" {
		intent.Creator = in.Creator
	}
	if in.Dataset != "" {
		intent.Dataset = in.Dataset
	}
	if in.MediaType != "" {
		intent.MediaType = domain.ParseMediaType(in.MediaType)
	}
	if len(in.Conditions) > 0 && intent.Conditions == nil {
		intent.Conditions = make(map[string]string, len(in.Conditions))
	}
	for k, v := range in.Conditions {
		intent.Conditions[k] = v
	}
	return intent, nil
}

func (s *Server) handleResolve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IntentInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	intent, err := input.intent()
	if err != nil {
		return nil, ResolveOutput{}, err
	}
	refs, err := s.ports.Resolution.Resolve(ctx, intent)
	if err != nil {
		return nil, ResolveOutput{}, err
	}

	output := ResolveOutput{
		References: make([]ReferenceOutput, len(refs)),
		Count:      len(refs),
	}
	for i := range refs {
		output.References[i] = referenceOutput(refs[i])
	}
	return nil, output, nil
}

func referenceOutput(ref domain.DataFileReference) ReferenceOutput {
	out := ReferenceOutput{
		ID:        ref.ID,
		Dataset:   ref.Dataset,
		Locator:   ref.Locator,
		MediaType: ref.MediaType,
		Title:     ref.Title,
	}
	if !ref.Checksum.IsZero() {
		out.Checksum = ref.Checksum.String()
	}
	return out
}

func (s *Server) handleFetch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IntentInput,
) (*mcp.CallToolResult, FetchOutput, error) {
	intent, err := input.intent()
	if err != nil {
		return nil, FetchOutput{}, err
	}
	if intent.IsEmpty() {
		return nil, FetchOutput{}, fmt.Errorf("%w: refusing to fetch every data file, narrow the intent", domain.ErrInvalidInput)
	}
	refs, err := s.ports.Resolution.Resolve(ctx, intent)
	if err != nil {
		return nil, FetchOutput{}, err
	}

	files, err := s.ports.Resolution.Materialize(ctx, refs)
	output := FetchOutput{Files: make([]FileOutput, len(files))}
	for i, f := range files {
		output.Files[i] = FileOutput{ID: f.Reference.ID, Path: f.Path}
	}
	var batch *domain.BatchError
	switch {
	case errors.As(err, &batch):
		for _, f := range batch.Failures {
			output.Failures = append(output.Failures, fmt.Sprintf("%s: %v", f.ID, f.Err))
		}
	case err != nil:
		return nil, FetchOutput{}, err
	}
	return nil, output, nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	lang := s.ports.Metadata.Language()
	rows, err := s.ports.Metadata.Query(ctx, input.Query, lang)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	seen := make(map[string]bool)
	output := QueryOutput{
		Language: string(lang),
		Rows:     make([]map[string]string, len(rows)),
		Count:    len(rows),
	}
	for i, row := range rows {
		out := make(map[string]string, len(row))
		for name, term := range row {
			out[name] = term.Value
			if !seen[name] {
				seen[name] = true
				output.Columns = append(output.Columns, name)
			}
		}
		output.Rows[i] = out
	}
	sort.Strings(output.Columns)
	return nil, output, nil
}

func (s *Server) handleFanProperties(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FanInput,
) (*mcp.CallToolResult, FanPropertiesOutput, error) {
	params, err := s.ports.Resolution.FanProperties(ctx, input.Fan)
	if err != nil {
		return nil, FanPropertiesOutput{}, err
	}
	cad, err := s.ports.Resolution.CADFiles(ctx, input.Fan)
	if err != nil {
		return nil, FanPropertiesOutput{}, err
	}

	output := FanPropertiesOutput{
		Parameters: make([]ParameterOutput, len(params)),
		CADFiles:   make([]ReferenceOutput, len(cad)),
	}
	for i, p := range params {
		output.Parameters[i] = ParameterOutput{Name: p.Name, Value: p.Value, Unit: p.Unit, IRI: p.IRI}
		if len(p.Extra) > 0 {
			output.Parameters[i].Extra = p.Extra
		}
	}
	for i := range cad {
		output.CADFiles[i] = referenceOutput(cad[i])
	}
	return nil, output, nil
}
