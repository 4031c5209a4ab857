package graphdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata/sparql"
	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// DefaultEndpoint is the address of a local GraphDB workbench.
const DefaultEndpoint = "http://localhost:7200"

// Store keeps the metadata graph in one context of a GraphDB (RDF4J)
// repository. Queries run against the whole repository.
type Store struct {
	base   string
	repo   string
	graph  string
	client *sparql.Client

	mu   sync.Mutex
	docs []domain.LoadedDocument
}

// Verify interface compliance.
var (
	_ driven.MetadataStore   = (*Store)(nil)
	_ driven.DocumentLister  = (*Store)(nil)
	_ driven.DirectoryLoader = (*Store)(nil)
)

// New creates a GraphDB store. The repository is not contacted.
func New(profile domain.SessionProfile) (*Store, error) {
	if profile.Repository == "" {
		return nil, fmt.Errorf("%w: profile %q has no graphdb repository", domain.ErrInvalidInput, profile.Name)
	}
	base := strings.TrimRight(profile.Endpoint, "/")
	if base == "" {
		base = DefaultEndpoint
	}
	repoURL := base + "/repositories/" + url.PathEscape(profile.Repository)

	client, err := sparql.NewClient(sparql.Options{
		Backend:        domain.BackendGraphDB.String(),
		QueryEndpoint:  repoURL,
		UpdateEndpoint: repoURL + "/statements",
		StoreEndpoint:  repoURL + "/rdf-graphs/service",
		Username:       profile.Username,
		Password:       profile.Password,
		Timeout:        profile.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		base:   base,
		repo:   profile.Repository,
		graph:  profile.GraphName(),
		client: client,
	}, nil
}

// Open is the factory builder for the graphdb backend. It makes sure the
// repository exists.
func Open(ctx context.Context, profile domain.SessionProfile) (driven.MetadataStore, error) {
	s, err := New(profile)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureRepository(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Backend implements driven.MetadataStore.
func (s *Store) Backend() domain.BackendKind {
	return domain.BackendGraphDB
}

// Language implements driven.MetadataStore.
func (s *Store) Language() domain.QueryLanguage {
	return domain.LanguageSPARQL
}

// repositoryInfo is one entry of GET /rest/repositories.
type repositoryInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// repositoryConfig is the JSON body of POST /rest/repositories.
type repositoryConfig struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// EnsureRepository creates the repository when it does not exist yet.
func (s *Store) EnsureRepository(ctx context.Context) error {
	endpoint := s.base + "/rest/repositories"
	resp, err := s.client.Send(ctx, http.MethodGet, endpoint, http.Header{"Accept": {"application/json"}}, nil)
	if err != nil {
		return err
	}
	if err := resp.Err(endpoint); err != nil {
		return err
	}

	var repos []repositoryInfo
	if err := json.Unmarshal(resp.Body, &repos); err != nil {
		return &domain.NetworkError{Locator: endpoint, Err: fmt.Errorf("decode repositories: %w", err)}
	}
	for _, r := range repos {
		if r.ID == s.repo {
			return nil
		}
	}

	logger.Info("Creating GraphDB repository %q", s.repo)
	body, err := json.Marshal(repositoryConfig{
		ID:     s.repo,
		Title:  "OpenCeFaDB metadata",
		Type:   "graphdb",
		Params: map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("encode repository config: %w", err)
	}
	resp, err = s.client.Send(ctx, http.MethodPost, endpoint, http.Header{"Content-Type": {"application/json"}}, body)
	if err != nil {
		return err
	}
	return resp.Err(endpoint)
}

// contextParam renders the graph as an RDF4J context parameter.
func (s *Store) contextParam() string {
	return "context=" + url.QueryEscape("<"+s.graph+">")
}

func (s *Store) statementsURL() string {
	return s.base + "/repositories/" + url.PathEscape(s.repo) + "/statements?" + s.contextParam()
}

// Clear implements driven.MetadataStore. Only the metadata context is
// removed; other contexts of the repository are kept.
func (s *Store) Clear(ctx context.Context) error {
	target := s.statementsURL()
	resp, err := s.client.Send(ctx, http.MethodDelete, target, nil, nil)
	if err != nil {
		return err
	}
	if err := resp.Err(target); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs = nil
	s.mu.Unlock()
	return nil
}

// Load implements driven.MetadataStore.
func (s *Store) Load(ctx context.Context, docs []domain.Document) (int, error) {
	target := s.statementsURL()
	return sparql.LoadEach(ctx, docs, func(ctx context.Context, _ domain.Document, data []byte) error {
		resp, err := s.client.Send(ctx, http.MethodPost, target, http.Header{"Content-Type": {domain.MediaTypeNTriples}}, data)
		if err != nil {
			return err
		}
		return resp.Err(target)
	}, func(doc domain.Document, n int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.docs = append(s.docs, domain.LoadedDocument{ID: uuid.NewString(), Path: doc.Path, Format: doc.Format, Triples: n})
	})
}

// LoadDirectory implements driven.DirectoryLoader.
func (s *Store) LoadDirectory(ctx context.Context, dir string, patterns []string) (int, error) {
	docs, err := rdfio.Discover(dir, patterns)
	if err != nil {
		return 0, err
	}
	logger.Debug("graphdb: %d documents below %s", len(docs), dir)
	return s.Load(ctx, docs)
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
	target := s.base + "/repositories/" + url.PathEscape(s.repo) + "/size?" + s.contextParam()
	resp, err := s.client.Send(ctx, http.MethodGet, target, http.Header{"Accept": {"text/plain"}}, nil)
	if err != nil {
		return 0, err
	}
	if err := resp.Err(target); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(resp.Body)))
	if err != nil {
		return 0, &domain.NetworkError{Locator: target, Err: fmt.Errorf("decode size: %w", err)}
	}
	return n, nil
}

// Documents implements driven.DocumentLister.
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
