package graphdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// fakeGraphDB emulates the subset of the RDF4J REST API the store uses.
type fakeGraphDB struct {
	mu         sync.Mutex
	repos      []string
	created    []repositoryConfig
	statements map[string][]string // context -> uploaded lines
	user, pass string
}

func (f *fakeGraphDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, p, ok := r.BasicAuth(); f.user != "" && (!ok || u != f.user || p != f.pass) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/rest/repositories" && r.Method == http.MethodGet:
		out := make([]repositoryInfo, len(f.repos))
		for i, id := range f.repos {
			out[i] = repositoryInfo{ID: id, Type: "graphdb"}
		}
		_ = json.NewEncoder(w).Encode(out)

	case r.URL.Path == "/rest/repositories" && r.Method == http.MethodPost:
		var cfg repositoryConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.created = append(f.created, cfg)
		f.repos = append(f.repos, cfg.ID)
		w.WriteHeader(http.StatusCreated)

	case strings.HasSuffix(r.URL.Path, "/statements"):
		graph := r.URL.Query().Get("context")
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			if f.statements == nil {
				f.statements = make(map[string][]string)
			}
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				f.statements[graph] = append(f.statements[graph], line)
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			delete(f.statements, graph)
			w.WriteHeader(http.StatusNoContent)
		}

	case strings.HasSuffix(r.URL.Path, "/size"):
		_, _ = w.Write([]byte(strconv.Itoa(len(f.statements[r.URL.Query().Get("context")]))))

	case strings.HasPrefix(r.URL.Path, "/repositories/") && r.Method == http.MethodPost:
		_ = r.ParseForm()
		if !strings.HasPrefix(strings.TrimSpace(r.PostForm.Get("query")), "SELECT") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("MALFORMED QUERY"))
			return
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{"head": {"vars": ["id"]}, "results": {"bindings": [{"id": {"type": "literal", "value": "Unit-42"}}]}}`))

	default:
		http.NotFound(w, r)
	}
}

func profileFor(srv *httptest.Server) domain.SessionProfile {
	return domain.SessionProfile{
		Name:       "gdb",
		Backend:    domain.BackendGraphDB,
		Endpoint:   srv.URL,
		Repository: "opencefadb",
		Username:   "admin",
		Password:   "root",
	}
}

func TestOpen_CreatesMissingRepository(t *testing.T) {
	fake := &fakeGraphDB{repos: []string{"other"}, user: "admin", pass: "root"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ms, err := Open(context.Background(), profileFor(srv))
	require.NoError(t, err)
	defer ms.Close()

	require.Len(t, fake.created, 1)
	assert.Equal(t, "opencefadb", fake.created[0].ID)
	assert.Equal(t, "graphdb", fake.created[0].Type)

	// A second open finds the repository.
	_, err = Open(context.Background(), profileFor(srv))
	require.NoError(t, err)
	assert.Len(t, fake.created, 1)
}

func TestOpen_Unauthorized(t *testing.T) {
	fake := &fakeGraphDB{user: "admin", pass: "other"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := Open(context.Background(), profileFor(srv))
	var ne *domain.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusUnauthorized, ne.StatusCode)
	assert.False(t, domain.IsTransient(err))
}

func TestNew_RequiresRepository(t *testing.T) {
	_, err := New(domain.SessionProfile{Name: "gdb", Backend: domain.BackendGraphDB})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadCountClear(t *testing.T) {
	fake := &fakeGraphDB{repos: []string{"opencefadb"}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store, err := New(profileFor(srv))
	require.NoError(t, err)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fans"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fans", "unit42.ttl"), []byte(`@prefix dct: <http://purl.org/dc/terms/> .
<https://example.org/fan/42> dct:identifier "Unit-42" ; dct:title "Fan 42" .
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.nt"), []byte("<a> <b>\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# notes"), 0o600))

	n, err := store.LoadDirectory(ctx, dir, nil)
	assert.Equal(t, 2, n)
	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "broken.nt"), batch.Failures[0].ID)

	ctxKey := "<" + domain.DefaultGraph + ">"
	assert.Len(t, fake.statements[ctxKey], 2)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	docs, err := store.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Triples)

	require.NoError(t, store.Clear(ctx))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	docs, err = store.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestQuery(t *testing.T) {
	fake := &fakeGraphDB{repos: []string{"opencefadb"}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store, err := New(profileFor(srv))
	require.NoError(t, err)

	rows, err := store.Query(context.Background(), "SELECT ?id WHERE { ?f <http://purl.org/dc/terms/identifier> ?id }", domain.LanguageSPARQL)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Unit-42", rows[0].Value("id"))

	_, err = store.Query(context.Background(), "DESCRIBE <x>", domain.LanguageSPARQL)
	assert.True(t, domain.IsQuerySyntax(err))

	_, err = store.Query(context.Background(), "SELECT 1", domain.LanguageSQL)
	assert.True(t, domain.IsQuerySyntax(err))
}
