package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/archive"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/storage/memory"
	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
	"github.com/opencefadb/opencefadb-cli/internal/metrics"
)

const hdfContent = "HDF5 operating point 600"

// fanMetadata describes one operating point of fan Unit-42 with one HDF5
// file served by the test archive.
const fanMetadata = `@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix dct: <http://purl.org/dc/terms/> .
@prefix sosa: <http://www.w3.org/ns/sosa/> .
@prefix ssno: <https://matthiasprobst.github.io/ssno#> .
@prefix m4i: <http://w3id.org/nfdi4ing/metadata4ing#> .

<https://example.org/fan/42> dct:identifier "Unit-42" .

<https://example.org/ds/op-600> a dcat:Dataset ;
    dct:identifier "op-600" ;
    sosa:hasFeatureOfInterest <https://example.org/fan/42> ;
    m4i:hasParameter <https://example.org/ds/op-600/speed> ;
    dcat:distribution <https://example.org/dist/op-600-hdf> .

<https://example.org/ds/op-600/speed> ssno:standardName "rotational_speed" ;
    m4i:hasNumericalValue "600" .

<https://example.org/dist/op-600-hdf> dct:identifier "op-600.hdf" ;
    dcat:downloadURL <%s/data/op-600.hdf> ;
    dcat:mediaType "application/x-hdf5" .
`

// newTestArchive serves a catalog with release 1.0 and its documents.
func newTestArchive(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalogs/opencefadb/versions":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"versions": [{"version": "1.0", "locator": "/releases/1.0/release.yaml", "published": "2024-05-01T00:00:00Z"}]}`)
		case "/releases/1.0/release.yaml":
			fmt.Fprintf(w, "version: \"1.0\"\ndocuments:\n  - id: op-600\n    locator: %s/md/op-600.ttl\n", srv.URL)
		case "/md/op-600.ttl":
			fmt.Fprintf(w, fanMetadata, srv.URL)
		case "/data/op-600.hdf":
			fmt.Fprint(w, hdfContent)
		case "/data/fan.igs":
			fmt.Fprint(w, igesContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupTestServices wires in-memory profiles, the real backends and the
// test archive. It returns the archive URL.
func setupTestServices(t *testing.T) string {
	t.Helper()
	srv := newTestArchive(t)

	profiles := services.NewProfileService(memory.NewConfigStore())
	m := metrics.New()
	factory := &services.SessionFactory{
		Profiles: profiles,
		Stores:   metadata.NewFactory(),
		Archives: archive.NewFactory(m),
		Metrics:  m,
	}

	oldProfiles, oldSessions, oldMetrics, oldBase := profileService, sessionFactory, appMetrics, workspaceBase
	SetServices(profiles, factory, m)
	workspaceBase = t.TempDir()
	t.Cleanup(func() {
		profileService, sessionFactory, appMetrics, workspaceBase = oldProfiles, oldSessions, oldMetrics, oldBase
	})
	return srv.URL
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else if f.Value.Type() != "stringToString" {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	intentFlags.conditions = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func addProfile(t *testing.T, archiveURL, name string) {
	t.Helper()
	_, err := execute(t, "profile", "add", name, "--catalog", "http", "--catalog-url", archiveURL, "--catalog-id", "opencefadb")
	require.NoError(t, err)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"profile", "versions", "init", "load", "query", "resolve", "fetch", "status", "reset", "watch", "mcp", "version", "fan", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "--log-level", "loud", "profile", "list")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWorkflow_InitResolveFetch(t *testing.T) {
	archiveURL := setupTestServices(t)
	addProfile(t, archiveURL, "local")

	out, err := execute(t, "versions")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0")
	assert.Contains(t, out, "2024-05-01")

	out, err = execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Release 1.0 initialised")
	assert.Contains(t, out, "1 of 1 fetched")

	out, err = execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile:    local")
	assert.Contains(t, out, "op-600.ttl")

	out, err = execute(t, "resolve", "fan=Unit-42", "condition.rotational_speed=600")
	require.NoError(t, err)
	assert.Contains(t, out, "op-600.hdf")
	assert.Contains(t, out, "application/x-hdf5")
	assert.Contains(t, out, "1 data files")

	out, err = execute(t, "resolve", "--fan", "Unit-42", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "op-600.hdf"`)

	out, err = execute(t, "resolve", "fan=Unit-99")
	require.NoError(t, err)
	assert.Contains(t, out, "No data files match")

	out, err = execute(t, "fetch", "fan=Unit-42")
	require.NoError(t, err)
	assert.Contains(t, out, "op-600.hdf")

	out, err = execute(t, "query", "SELECT COUNT(*) AS n FROM triples")
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows")
}

func TestQuery_BeforeLoad(t *testing.T) {
	archiveURL := setupTestServices(t)
	addProfile(t, archiveURL, "local")

	_, err := execute(t, "query", "SELECT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNothingLoaded)
	assert.Equal(t, ExitState, ExitCode(err))
}

func TestResolve_NoProfile(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "resolve", "fan=Unit-42")
	assert.ErrorIs(t, err, domain.ErrNoActiveProfile)
}

func TestResolve_BadIntent(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "resolve", "colour=red")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetch_RefusesEmptyIntent(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "fetch")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_Files(t *testing.T) {
	archiveURL := setupTestServices(t)
	addProfile(t, archiveURL, "local")

	dir := t.TempDir()
	path := dir + "/fan.ttl"
	require.NoError(t, writeTestFile(path, fmt.Sprintf(fanMetadata, archiveURL)))
	require.NoError(t, writeTestFile(dir+"/broken.nt", "<https://example.org/a> <https://example.org/b>\n"))

	out, err := execute(t, "load", dir)
	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	assert.Len(t, batch.Failures, 1)
	assert.Equal(t, ExitPartial, ExitCode(err))
	assert.Contains(t, out, "Loaded")

	out, err = execute(t, "load", "--clear", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded")

	_, err = execute(t, "load", dir+"/readme.md")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	archiveURL := setupTestServices(t)
	addProfile(t, archiveURL, "local")

	oldTerminal := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	defer func() { stdinIsTerminal = oldTerminal }()

	_, err := execute(t, "init")
	require.NoError(t, err)
	workdir := workspaceBase + "/local"
	assert.DirExists(t, workdir)

	_, err = execute(t, "reset")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.DirExists(t, workdir)

	out, err := execute(t, "reset", "--yes", "--forget-profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset profile local")
	assert.NoDirExists(t, workdir)

	state, err := profileService.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StateUninitialized, state)
}

func TestReset_LocalOnlyLeavesRemoteBackendAlone(t *testing.T) {
	setupTestServices(t)

	var (
		mu       sync.Mutex
		requests []string
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	workdir := filepath.Join(t.TempDir(), "remote")
	_, err := execute(t, "profile", "add", "remote", "--backend", "graphdb",
		"--endpoint", backend.URL, "--repository", "opencefadb", "--workdir", workdir, "--use")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(workdir, "cache"), 0o755))
	_, err = execute(t, "reset", "--yes")
	require.NoError(t, err)
	assert.NoDirExists(t, workdir)
	assert.Empty(t, requests)

	// The backend being down does not prevent a local reset.
	backend.Close()
	require.NoError(t, os.MkdirAll(filepath.Join(workdir, "cache"), 0o755))
	out, err := execute(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset profile remote")
	assert.NoDirExists(t, workdir)

	// Clearing the backend needs it.
	require.NoError(t, os.MkdirAll(workdir, 0o755))
	_, err = execute(t, "reset", "--yes", "--clear-backend")
	require.Error(t, err)
	assert.DirExists(t, workdir)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"batch", domain.NewBatchError("load", 2, []domain.ItemError{{ID: "a", Err: errors.New("x")}}), ExitPartial},
		{"state", &domain.StateError{Operation: "query", Reason: domain.ErrNothingLoaded}, ExitState},
		{"invalid", fmt.Errorf("wrap: %w", domain.ErrInvalidInput), ExitUsage},
		{"syntax", &domain.QueryError{Kind: domain.QuerySyntax, Err: errors.New("bad")}, ExitUsage},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestMergeBatchErrors(t *testing.T) {
	a := domain.NewBatchError("load", 2, []domain.ItemError{{ID: "a", Err: errors.New("x")}})
	b := domain.NewBatchError("load", 3, []domain.ItemError{{ID: "b", Err: errors.New("y")}})

	err := mergeBatchErrors("load", []error{a, b})
	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, 5, batch.Total)
	assert.Len(t, batch.Failures, 2)

	assert.NoError(t, mergeBatchErrors("load", nil))

	plain := errors.New("disk full")
	assert.Equal(t, plain, mergeBatchErrors("load", []error{a, plain}))
}

func TestRowColumns(t *testing.T) {
	rows := []domain.Row{
		{"b": domain.Literal("1")},
		{"a": domain.Literal("2"), "b": domain.Literal("3")},
	}
	assert.Equal(t, []string{"a", "b"}, rowColumns(rows))
	assert.Empty(t, rowColumns(nil))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "gh...yz", maskSecret("ghp_abcdefghxyz"))
}
