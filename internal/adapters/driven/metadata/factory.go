// Package metadata selects the metadata store backend of a session.
package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata/graphdb"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata/sparql"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata/sqlite"
	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
)

// Factory is a registry of metadata store builders keyed by backend.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.BackendKind]driven.MetadataStoreBuilder
}

// Verify interface compliance.
var _ driven.MetadataStoreFactory = (*Factory)(nil)

// NewFactory returns a factory with the built-in backends registered.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[domain.BackendKind]driven.MetadataStoreBuilder)}
	f.Register(domain.BackendSQLite, sqlite.Open)
	f.Register(domain.BackendGraphDB, graphdb.Open)
	f.Register(domain.BackendSPARQL, sparql.Open)
	return f
}

// Create implements driven.MetadataStoreFactory.
func (f *Factory) Create(ctx context.Context, profile domain.SessionProfile) (driven.MetadataStore, error) {
	f.mu.RLock()
	build, ok := f.builders[profile.Backend]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: backend %q", domain.ErrUnsupportedType, profile.Backend)
	}
	logger.Debug("opening %s metadata store for profile %q", profile.Backend, profile.Name)
	store, err := build(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", profile.Backend, err)
	}
	return store, nil
}

// Register implements driven.MetadataStoreFactory. A later registration
// replaces an earlier one.
func (f *Factory) Register(kind domain.BackendKind, builder driven.MetadataStoreBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[kind] = builder
}

// SupportedBackends implements driven.MetadataStoreFactory.
func (f *Factory) SupportedBackends() []domain.BackendKind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	kinds := make([]domain.BackendKind, 0, len(f.builders))
	for k := range f.builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
