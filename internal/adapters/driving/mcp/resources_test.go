package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
)

func TestExtractFanID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid fan files URI", uri: "opencefadb://fans/Unit-42/files", expected: "Unit-42"},
		{name: "escaped id", uri: "opencefadb://fans/Unit%2042/files", expected: "Unit 42"},
		{name: "invalid prefix", uri: "file://fans/Unit-42/files", expected: ""},
		{name: "missing files suffix", uri: "opencefadb://fans/Unit-42", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractFanID(tt.uri))
		})
	}
}

func newReadRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleProfileResource(t *testing.T) {
	profiles := &mockProfileService{active: &domain.SessionProfile{
		Name:             "local",
		Backend:          domain.BackendSQLite,
		WorkingDirectory: "/data/opencefadb",
		Password:         "hunter2",
		Catalog:          domain.CatalogSettings{Kind: domain.CatalogZenodo, ID: "14551649"},
	}}
	server := newTestServer(t, &Ports{Resolution: &mockResolutionService{}, Profiles: profiles})

	result, err := server.handleProfileResource(context.Background(), newReadRequest("opencefadb://profile"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	text := result.Contents[0].Text
	assert.NotContains(t, text, "hunter2")

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(text), &info))
	assert.Equal(t, "local", info["name"])
	assert.Equal(t, "sqlite", info["backend"])
	assert.Equal(t, "zenodo:14551649", info["catalog"])

	profiles.err = errors.New("broken file")
	_, err = server.handleProfileResource(context.Background(), newReadRequest("opencefadb://profile"))
	assert.Error(t, err)
}

func TestServer_handleStatusResource(t *testing.T) {
	metadata := &mockMetadataService{status: &driving.MetadataStatus{
		Backend: domain.BackendSQLite,
		Triples: 12,
		Documents: []domain.LoadedDocument{
			{Path: "/ws/metadata/op-600/op-600.ttl", Format: domain.FormatTurtle, Triples: 12},
		},
	}}
	server := newTestServer(t, &Ports{Resolution: &mockResolutionService{}, Metadata: metadata})

	result, err := server.handleStatusResource(context.Background(), newReadRequest("opencefadb://status"))
	require.NoError(t, err)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, `"triples": 12`)
	assert.Contains(t, result.Contents[0].Text, "op-600.ttl")
}

func TestServer_handleFanFilesResource(t *testing.T) {
	resolution := &mockResolutionService{refs: []domain.DataFileReference{{ID: "op-600.hdf", Locator: "https://example.org/op-600.hdf"}}}
	server := newTestServer(t, &Ports{Resolution: resolution})

	result, err := server.handleFanFilesResource(context.Background(), newReadRequest("opencefadb://fans/Unit-42/files"))
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, "op-600.hdf")
	require.Len(t, resolution.intents, 1)
	assert.Equal(t, "Unit-42", resolution.intents[0].Fan)

	_, err = server.handleFanFilesResource(context.Background(), newReadRequest("opencefadb://fans/"))
	assert.Error(t, err)
}
