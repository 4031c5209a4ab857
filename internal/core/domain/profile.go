package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// BackendKind selects the metadata store implementation.
type BackendKind string

// Available backends.
const (
	// BackendSQLite is the embedded in-process store.
	BackendSQLite BackendKind = "sqlite"

	// BackendGraphDB is a remote GraphDB/RDF4J repository.
	BackendGraphDB BackendKind = "graphdb"

	// BackendSPARQL is a generic SPARQL 1.1 endpoint.
	BackendSPARQL BackendKind = "sparql"
)

// IsValid returns true if the backend is recognised.
func (b BackendKind) IsValid() bool {
	switch b {
	case BackendSQLite, BackendGraphDB, BackendSPARQL:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the backend talks to a server.
func (b BackendKind) IsRemote() bool {
	return b == BackendGraphDB || b == BackendSPARQL
}

// String returns the string representation.
func (b BackendKind) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b BackendKind) Description() string {
	switch b {
	case BackendSQLite:
		return "Embedded (SQLite, in-process)"
	case BackendGraphDB:
		return "GraphDB repository (remote)"
	case BackendSPARQL:
		return "SPARQL 1.1 endpoint (remote)"
	default:
		return unknownDescription
	}
}

// AllBackends returns all available backends.
func AllBackends() []BackendKind {
	return []BackendKind{BackendSQLite, BackendGraphDB, BackendSPARQL}
}

// CatalogKind selects where release versions are listed.
type CatalogKind string

// Available catalogs.
const (
	CatalogHTTP   CatalogKind = "http"
	CatalogZenodo CatalogKind = "zenodo"
	CatalogGitHub CatalogKind = "github"
)

// IsValid returns true if the catalog kind is recognised.
func (c CatalogKind) IsValid() bool {
	switch c {
	case CatalogHTTP, CatalogZenodo, CatalogGitHub:
		return true
	default:
		return false
	}
}

// CatalogSettings locate the versioned release configurations.
type CatalogSettings struct {
	// Kind is the catalog protocol.
	Kind CatalogKind

	// ID is the catalog identifier (catalog name, Zenodo concept record,
	// or "owner/repo" on GitHub).
	ID string

	// BaseURL overrides the public API address.
	BaseURL string
}

// SessionProfile is a named configuration selecting backend, working
// directory and remote endpoints.
type SessionProfile struct {
	// Name identifies the profile.
	Name string

	// Backend is the metadata store implementation.
	Backend BackendKind

	// Endpoint is the backend server URL (GraphDB base URL or SPARQL query URL).
	Endpoint string

	// UpdateEndpoint is the SPARQL update URL (sparql backend only).
	UpdateEndpoint string

	// StoreEndpoint is the graph store protocol URL (sparql backend only).
	StoreEndpoint string

	// Repository is the GraphDB repository id.
	Repository string

	// Graph is the named graph that receives loaded documents on remote backends.
	Graph string

	// Username and Password authenticate against remote backends.
	Username string
	Password string

	// WorkingDirectory is the root of the local workspace.
	WorkingDirectory string

	// Catalog locates release versions.
	Catalog CatalogSettings

	// AccessToken is sent as bearer token to the remote archive.
	AccessToken string

	// Timeout bounds single network calls; zero uses the client default.
	Timeout time.Duration
}

// DefaultGraph is the named graph used when a profile sets none.
const DefaultGraph = "urn:opencefadb:metadata"

// DefaultCatalogID is the catalog of the public fan database.
const DefaultCatalogID = "opencefadb"

// Validate checks that the profile carries what its backend needs.
func (p SessionProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidInput)
	}
	if !p.Backend.IsValid() {
		return fmt.Errorf("%w: backend %q", ErrUnsupportedType, p.Backend)
	}
	if p.WorkingDirectory == "" {
		return fmt.Errorf("%w: profile %q has no working directory", ErrInvalidInput, p.Name)
	}
	if p.Backend.IsRemote() && p.Endpoint == "" {
		return fmt.Errorf("%w: backend %s requires an endpoint", ErrInvalidInput, p.Backend)
	}
	if p.Backend == BackendGraphDB && p.Repository == "" {
		return fmt.Errorf("%w: backend graphdb requires a repository", ErrInvalidInput)
	}
	if p.Catalog.Kind != "" && !p.Catalog.Kind.IsValid() {
		return fmt.Errorf("%w: catalog %q", ErrUnsupportedType, p.Catalog.Kind)
	}
	return nil
}

// GraphName returns the configured named graph or DefaultGraph.
func (p SessionProfile) GraphName() string {
	if p.Graph != "" {
		return p.Graph
	}
	return DefaultGraph
}

// ProfileState is the lifecycle state of the profile manager.
type ProfileState string

// Profile manager states.
const (
	// StateUninitialized means no profile exists.
	StateUninitialized ProfileState = "uninitialized"

	// StateConfigured means profiles exist but none is selected.
	StateConfigured ProfileState = "configured"

	// StateActive means exactly one profile is selected.
	StateActive ProfileState = "active"
)

// String returns the string representation.
func (s ProfileState) String() string {
	return string(s)
}
