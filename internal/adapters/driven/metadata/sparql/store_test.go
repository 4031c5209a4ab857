package sparql

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// fakeEndpoint is an in-process SPARQL endpoint recording what it receives.
type fakeEndpoint struct {
	mu       sync.Mutex
	queries  []url.Values
	updates  []string
	uploads  map[string][]string
	auth     []string
	status   int // forced status for queries, 0 means 200
	attempts int
	results  string
}

func (f *fakeEndpoint) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.attempts++
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.queries = append(f.queries, r.PostForm)
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte("MALFORMED QUERY: Lexical error at line 1"))
			return
		}
		w.Header().Set("Content-Type", MediaTypeResults)
		if strings.Contains(r.PostForm.Get("query"), "COUNT") {
			_, _ = w.Write([]byte(`{"head": {"vars": ["n"]}, "results": {"bindings": [
				{"n": {"type": "literal", "datatype": "http://www.w3.org/2001/XMLSchema#integer", "value": "7"}}]}}`))
			return
		}
		_, _ = w.Write([]byte(f.results))
	})
	mux.HandleFunc("/update", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.updates = append(f.updates, r.PostForm.Get("update"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/store", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("Content-Type") != domain.MediaTypeNTriples {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		if f.uploads == nil {
			f.uploads = make(map[string][]string)
		}
		g := r.URL.Query().Get("graph")
		f.uploads[g] = append(f.uploads[g], string(body))
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func newTestStore(t *testing.T, f *fakeEndpoint) *Store {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		QueryEndpoint:  srv.URL + "/query",
		UpdateEndpoint: srv.URL + "/update",
		StoreEndpoint:  srv.URL + "/store",
		DefaultGraph:   "urn:test:graph",
		Username:       "admin",
		Password:       "secret",
		RetryDelay:     time.Millisecond,
	})
	require.NoError(t, err)
	store, err := NewWithClient(client, "urn:test:graph")
	require.NoError(t, err)
	return store
}

func writeDoc(t *testing.T, dir, name, content string, format domain.Format) domain.Document {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return domain.Document{Path: path, Format: format}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(domain.SessionProfile{Name: "remote", Backend: domain.BackendSPARQL})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(domain.SessionProfile{Name: "remote", Backend: domain.BackendSPARQL, Endpoint: "ftp://x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := New(domain.SessionProfile{Name: "remote", Backend: domain.BackendSPARQL, Endpoint: "http://localhost:3030/ds/query"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGraph, s.Graph())
	assert.Equal(t, domain.LanguageSPARQL, s.Language())
	assert.Equal(t, domain.BackendSPARQL, s.Backend())
}

func TestLoad_UploadsPerDocument(t *testing.T) {
	f := &fakeEndpoint{}
	store := newTestStore(t, f)
	dir := t.TempDir()
	docs := []domain.Document{
		writeDoc(t, dir, "a.nt", "<https://example.org/a> <https://example.org/p> \"1\" .\n", domain.FormatNTriples),
		writeDoc(t, dir, "bad.nt", "<https://example.org/b> <https://example.org/p> \"oops .\n", domain.FormatNTriples),
		writeDoc(t, dir, "c.ttl", "<https://example.org/c> <https://example.org/p> <https://example.org/x>, <https://example.org/y> .\n", domain.FormatTurtle),
	}

	n, err := store.Load(context.Background(), docs)
	assert.Equal(t, 3, n)

	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, docs[1].Path, batch.Failures[0].ID)
	var parseErr *domain.ParseError
	assert.ErrorAs(t, batch.Failures[0].Err, &parseErr)

	require.Len(t, f.uploads["urn:test:graph"], 2)
	assert.Contains(t, f.uploads["urn:test:graph"][1], "<https://example.org/y>")

	loaded, err := store.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 2, loaded[1].Triples)
}

func TestLoad_RejectedUploadIsCollected(t *testing.T) {
	var mu sync.Mutex
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		posts++
		if posts == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client, err := NewClient(Options{QueryEndpoint: srv.URL, StoreEndpoint: srv.URL, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	store, err := NewWithClient(client, "")
	require.NoError(t, err)

	dir := t.TempDir()
	docs := []domain.Document{
		writeDoc(t, dir, "a.nt", "<https://example.org/a> <https://example.org/p> \"1\" .\n", domain.FormatNTriples),
		writeDoc(t, dir, "b.nt", "<https://example.org/b> <https://example.org/p> \"2\" .\n", domain.FormatNTriples),
		writeDoc(t, dir, "c.nt", "<https://example.org/c> <https://example.org/p> \"3\" .\n", domain.FormatNTriples),
	}
	n, err := store.Load(context.Background(), docs)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, posts)

	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, docs[1].Path, batch.Failures[0].ID)
	var ne *domain.NetworkError
	require.ErrorAs(t, batch.Failures[0].Err, &ne)
	assert.Equal(t, http.StatusBadRequest, ne.StatusCode)

	loaded, err := store.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, docs[2].Path, loaded[1].Path)
}

func TestLoad_UnavailableBackendAborts(t *testing.T) {
	var mu sync.Mutex
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		posts++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Options{QueryEndpoint: srv.URL, StoreEndpoint: srv.URL, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	store, err := NewWithClient(client, "")
	require.NoError(t, err)

	dir := t.TempDir()
	docs := []domain.Document{
		writeDoc(t, dir, "a.nt", "<https://example.org/a> <https://example.org/p> \"1\" .\n", domain.FormatNTriples),
		writeDoc(t, dir, "b.nt", "<https://example.org/b> <https://example.org/p> \"2\" .\n", domain.FormatNTriples),
	}
	_, err = store.Load(context.Background(), docs)

	assert.True(t, domain.IsTransient(err))
	var batch *domain.BatchError
	assert.False(t, errors.As(err, &batch))
	assert.Equal(t, DefaultMaxRetries+1, posts, "the second document is not attempted")
}

func TestQuery(t *testing.T) {
	f := &fakeEndpoint{results: `{"head": {"vars": ["url", "mt"]}, "results": {"bindings": [
		{"url": {"type": "uri", "value": "https://example.org/files/1.hdf"}, "mt": {"type": "literal", "value": "application/x-hdf5"}},
		{"url": {"type": "uri", "value": "https://example.org/files/2.csv"}}
	]}}`}
	store := newTestStore(t, f)

	rows, err := store.Query(context.Background(), "SELECT ?url ?mt WHERE { ?d <http://www.w3.org/ns/dcat#downloadURL> ?url }", domain.LanguageSPARQL)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.IRI("https://example.org/files/1.hdf"), rows[0]["url"])
	assert.Equal(t, "application/x-hdf5", rows[0].Value("mt"))
	_, bound := rows[1]["mt"]
	assert.False(t, bound)

	require.Len(t, f.queries, 1)
	assert.Equal(t, "urn:test:graph", f.queries[0].Get("default-graph-uri"))
	assert.True(t, strings.HasPrefix(f.auth[0], "Basic "))
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()

	store := newTestStore(t, &fakeEndpoint{})
	_, err := store.Query(ctx, "SELECT 1", domain.LanguageSQL)
	assert.True(t, domain.IsQuerySyntax(err))

	f := &fakeEndpoint{status: http.StatusBadRequest}
	store = newTestStore(t, f)
	_, err = store.Query(ctx, "SELEKT", domain.LanguageSPARQL)
	assert.True(t, domain.IsQuerySyntax(err))
	assert.Contains(t, err.Error(), "MALFORMED QUERY")
	assert.Equal(t, 1, f.attempts, "syntax errors are not retried")

	f = &fakeEndpoint{status: http.StatusServiceUnavailable}
	store = newTestStore(t, f)
	_, err = store.Query(ctx, "SELECT * WHERE { ?s ?p ?o }", domain.LanguageSPARQL)
	var qErr *domain.QueryError
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, domain.QueryBackendUnavailable, qErr.Kind)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, DefaultMaxRetries+1, f.attempts)
}

func TestCountAndClear(t *testing.T) {
	f := &fakeEndpoint{}
	store := newTestStore(t, f)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Contains(t, f.queries[0].Get("query"), "FROM <urn:test:graph>")

	require.NoError(t, store.Clear(context.Background()))
	require.Len(t, f.updates, 1)
	assert.Equal(t, "DROP SILENT GRAPH <urn:test:graph>", strings.TrimSpace(f.updates[0]))
}
