package sparql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// Maintenance queries, formatted with the graph IRI.
const (
	countQuery = "SELECT (COUNT(*) AS ?n) FROM <%s> WHERE { ?s ?p ?o }"
	dropUpdate = "DROP SILENT GRAPH <%s>"
)

// Store keeps the metadata graph in one named graph of a generic SPARQL
// 1.1 endpoint. Queries see that graph as their default graph.
type Store struct {
	client *Client
	graph  string

	mu   sync.Mutex
	docs []domain.LoadedDocument
}

// Verify interface compliance.
var (
	_ driven.MetadataStore  = (*Store)(nil)
	_ driven.DocumentLister = (*Store)(nil)
)

// New creates an endpoint store from a profile.
func New(profile domain.SessionProfile) (*Store, error) {
	if profile.Endpoint == "" {
		return nil, fmt.Errorf("%w: profile %q has no sparql endpoint", domain.ErrInvalidInput, profile.Name)
	}
	graph := profile.GraphName()
	client, err := NewClient(Options{
		Backend:        domain.BackendSPARQL.String(),
		QueryEndpoint:  profile.Endpoint,
		UpdateEndpoint: profile.UpdateEndpoint,
		StoreEndpoint:  profile.StoreEndpoint,
		DefaultGraph:   graph,
		Username:       profile.Username,
		Password:       profile.Password,
		Timeout:        profile.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, graph)
}

// NewWithClient creates an endpoint store over an existing client.
func NewWithClient(client *Client, graph string) (*Store, error) {
	if graph == "" {
		graph = domain.DefaultGraph
	}
	return &Store{client: client, graph: graph}, nil
}

// Open is the factory builder for the sparql backend.
func Open(_ context.Context, profile domain.SessionProfile) (driven.MetadataStore, error) {
	return New(profile)
}

// Backend implements driven.MetadataStore.
func (s *Store) Backend() domain.BackendKind {
	return domain.BackendSPARQL
}

// Language implements driven.MetadataStore.
func (s *Store) Language() domain.QueryLanguage {
	return domain.LanguageSPARQL
}

// Graph returns the named graph holding the metadata.
func (s *Store) Graph() string {
	return s.graph
}

// Clear implements driven.MetadataStore.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Update(ctx, fmt.Sprintf(dropUpdate, s.graph)); err != nil {
		return fmt.Errorf("dropping graph %s: %w", s.graph, err)
	}
	s.mu.Lock()
	s.docs = nil
	s.mu.Unlock()
	return nil
}

// Load implements driven.MetadataStore. Documents are decoded locally, so
// syntax errors are reported with line information, then uploaded as
// N-Triples, one request per document.
func (s *Store) Load(ctx context.Context, docs []domain.Document) (int, error) {
	return LoadEach(ctx, docs, func(ctx context.Context, doc domain.Document, data []byte) error {
		return s.client.PostGraph(ctx, s.graph, data, domain.MediaTypeNTriples)
	}, s.record)
}

func (s *Store) record(doc domain.Document, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, domain.LoadedDocument{ID: uuid.NewString(), Path: doc.Path, Format: doc.Format, Triples: n})
}

// LoadEach decodes every document, hands its N-Triples serialisation to
// upload and collects per-document parse and upload failures. Only
// cancellation and a backend that stays unavailable after retries abort
// the batch. record is called for each document uploaded.
func LoadEach(
	ctx context.Context,
	docs []domain.Document,
	upload func(context.Context, domain.Document, []byte) error,
	record func(domain.Document, int),
) (int, error) {
	total := 0
	var failures []domain.ItemError

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		triples, err := rdfio.DecodeFile(ctx, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return total, ctxErr
			}
			var parseErr *domain.ParseError
			if !errors.As(err, &parseErr) {
				return total, err
			}
			failures = append(failures, domain.ItemError{ID: doc.Path, Err: parseErr})
			continue
		}

		data, n := rdfio.EncodeNTriples(triples)
		if n > 0 {
			if err := upload(ctx, doc, data); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return total, ctxErr
				}
				if domain.IsTransient(err) || errors.Is(err, domain.ErrInvalidInput) {
					return total, fmt.Errorf("uploading %s: %w", doc.Path, err)
				}
				logger.Warn("upload of %s rejected: %v", doc.Path, err)
				failures = append(failures, domain.ItemError{ID: doc.Path, Err: err})
				continue
			}
		}
		logger.Debug("uploaded %d statements from %s", n, doc.Path)
		record(doc, n)
		total += n
	}

	return total, domain.NewBatchError("load", len(docs), failures)
}

// Query implements driven.MetadataStore.
func (s *Store) Query(ctx context.Context, text string, lang domain.QueryLanguage) ([]domain.Row, error) {
	if lang != domain.LanguageSPARQL {
		return nil, &domain.QueryError{
			Kind:    domain.QuerySyntax,
			Backend: s.client.Backend(),
			Err:     fmt.Errorf("%w: query language %q, expected %q", domain.ErrUnsupportedType, lang, domain.LanguageSPARQL),
		}
	}
	return s.client.Select(ctx, text)
}

// Count implements driven.MetadataStore.
func (s *Store) Count(ctx context.Context) (int, error) {
	rows, err := s.client.Select(ctx, fmt.Sprintf(countQuery, s.graph))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(rows[0].Value("n"))
	if err != nil {
		return 0, fmt.Errorf("count result %q: %w", rows[0].Value("n"), err)
	}
	return n, nil
}

// Documents implements driven.DocumentLister. Only documents loaded
// through this store instance are known.
func (s *Store) Documents(_ context.Context) ([]domain.LoadedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LoadedDocument, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

// Close implements driven.MetadataStore.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
