package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// Ensure MetadataService implements the interface.
var _ driving.MetadataService = (*MetadataService)(nil)

// MetadataService serialises mutations of the metadata store against
// queries. Load and Clear hold the write lock, Query and Status the read
// lock, so a query never observes a partially loaded batch.
type MetadataService struct {
	mu      sync.RWMutex
	store   driven.MetadataStore
	metrics driven.MetricsRecorder
}

// NewMetadataService wraps store. metrics may be nil.
func NewMetadataService(store driven.MetadataStore, metrics driven.MetricsRecorder) *MetadataService {
	return &MetadataService{store: store, metrics: metrics}
}

// Language returns the query language of the active backend.
func (s *MetadataService) Language() domain.QueryLanguage {
	return s.store.Language()
}

// Backend returns the active backend kind.
func (s *MetadataService) Backend() domain.BackendKind {
	return s.store.Backend()
}

// Load inserts documents.
func (s *MetadataService) Load(ctx context.Context, docs []domain.Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Load(ctx, docs)
	s.observeLoad(len(docs), n, err)
	return n, err
}

// LoadDirectory loads the documents below dir matching patterns.
func (s *MetadataService) LoadDirectory(ctx context.Context, dir string, patterns []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loader, ok := s.store.(driven.DirectoryLoader); ok {
		n, err := loader.LoadDirectory(ctx, dir, patterns)
		s.observeLoad(-1, n, err)
		return n, err
	}

	docs, err := rdfio.Discover(dir, patterns)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		logger.Warn("No RDF documents found below %s", dir)
		return 0, nil
	}
	logger.Debug("discovered %d documents below %s", len(docs), dir)

	n, err := s.store.Load(ctx, docs)
	s.observeLoad(len(docs), n, err)
	return n, err
}

// observeLoad records a load. total is -1 when the number of documents is
// not known to the service.
func (s *MetadataService) observeLoad(total, triples int, err error) {
	if s.metrics == nil {
		return
	}
	failed := 0
	var batch *domain.BatchError
	if errors.As(err, &batch) {
		failed = len(batch.Failures)
		if total < 0 {
			total = batch.Total
		}
	}
	loaded := 0
	if total > 0 {
		loaded = total - failed
	}
	s.metrics.ObserveLoad(s.store.Backend(), loaded, failed, triples)
}

// Clear empties the store.
func (s *MetadataService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s store: %w", s.store.Backend(), err)
	}
	return nil
}

// Query runs a read query. An empty graph is reported as a StateError
// rather than an empty result.
func (s *MetadataService) Query(ctx context.Context, text string, lang domain.QueryLanguage) ([]domain.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &domain.StateError{Operation: "query", Reason: domain.ErrNothingLoaded}
	}

	start := time.Now()
	rows, err := s.store.Query(ctx, text, lang)
	if s.metrics != nil {
		s.metrics.ObserveQuery(s.store.Backend(), err, time.Since(start))
	}
	return rows, err
}

// Status reports what the store holds.
func (s *MetadataService) Status(ctx context.Context) (*driving.MetadataStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	status := &driving.MetadataStatus{Backend: s.store.Backend(), Triples: n}
	if lister, ok := s.store.(driven.DocumentLister); ok {
		docs, err := lister.Documents(ctx)
		if err != nil {
			return nil, err
		}
		status.Documents = docs
	}
	return status, nil
}

// Close releases the store.
func (s *MetadataService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}
