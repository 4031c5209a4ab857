package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for OpenCeFaDB resources.
	uriScheme = "opencefadb://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Profiles != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "profile",
			Name:        "profile",
			Description: "The active session profile",
			MIMEType:    "application/json",
		}, s.handleProfileResource)
	}

	if s.ports.Metadata != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "status",
			Name:        "status",
			Description: "Backend and metadata documents currently loaded",
			MIMEType:    "application/json",
		}, s.handleStatusResource)
	}

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "fans/{fanId}/files",
		Name:        "fan-files",
		Description: "Data files recorded for a specific fan",
		MIMEType:    "application/json",
	}, s.handleFanFilesResource)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleProfileResource returns the active profile without credentials.
func (s *Server) handleProfileResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	profile, err := s.ports.Profiles.Active()
	if err != nil {
		return nil, fmt.Errorf("reading active profile: %w", err)
	}

	type profileInfo struct {
		Name             string `json:"name"`
		Backend          string `json:"backend"`
		Endpoint         string `json:"endpoint,omitempty"`
		Repository       string `json:"repository,omitempty"`
		Graph            string `json:"graph"`
		WorkingDirectory string `json:"working_directory"`
		Catalog          string `json:"catalog,omitempty"`
	}
	info := profileInfo{
		Name:             profile.Name,
		Backend:          profile.Backend.String(),
		Endpoint:         profile.Endpoint,
		Repository:       profile.Repository,
		Graph:            profile.GraphName(),
		WorkingDirectory: profile.WorkingDirectory,
	}
	if profile.Catalog.Kind != "" {
		info.Catalog = string(profile.Catalog.Kind) + ":" + profile.Catalog.ID
	}
	return jsonResult(req.Params.URI, info)
}

// handleStatusResource reports what the metadata store holds.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Metadata.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	type docInfo struct {
		Path    string `json:"path"`
		Format  string `json:"format"`
		Triples int    `json:"triples"`
	}
	type statusInfo struct {
		Backend   string    `json:"backend"`
		Triples   int       `json:"triples"`
		Documents []docInfo `json:"documents"`
	}

	info := statusInfo{
		Backend:   status.Backend.String(),
		Triples:   status.Triples,
		Documents: make([]docInfo, len(status.Documents)),
	}
	for i, d := range status.Documents {
		info.Documents[i] = docInfo{Path: d.Path, Format: d.Format.String(), Triples: d.Triples}
	}
	return jsonResult(req.Params.URI, info)
}

// handleFanFilesResource resolves every data file of one fan.
func (s *Server) handleFanFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	fanID := extractFanID(req.Params.URI)
	if fanID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	refs, err := s.ports.Resolution.Resolve(ctx, domain.Intent{Fan: fanID})
	if err != nil {
		return nil, fmt.Errorf("resolving fan %s: %w", fanID, err)
	}
	out := make([]ReferenceOutput, len(refs))
	for i := range refs {
		out[i] = referenceOutput(refs[i])
	}
	return jsonResult(req.Params.URI, out)
}

// extractFanID extracts the fan id from a URI like opencefadb://fans/{fanId}/files.
func extractFanID(uri string) string {
	const prefix = uriScheme + "fans/"
	const suffix = "/files"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}
	id, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix))
	if err != nil {
		return ""
	}
	return id
}
