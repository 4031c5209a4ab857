package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/query"
)

func newResolution(t *testing.T, fetcher *blobFetcher) (*ResolutionService, domain.Workspace) {
	t.Helper()
	svc := newSQLiteMetadata(t)
	loadFanMetadata(t, svc, false)
	ws := domain.NewWorkspace(t.TempDir())
	return NewResolutionService(svc, fetcher, ws, nil), ws
}

func locators(refs []domain.DataFileReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Locator
	}
	return out
}

func TestResolve_ByFan(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(nil))

	refs, err := svc.Resolve(context.Background(), domain.Intent{Fan: "Unit-42"})
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, []string{
		"https://data.example.org/op-600.csv",
		"https://data.example.org/op-600.hdf",
		"https://data.example.org/op-1200.hdf",
	}, locators(refs))
	assert.Equal(t, "https://example.org/dist/op-600-csv", refs[0].ID)
	assert.Equal(t, "op-1200.hdf", refs[2].ID)

	hdf := refs[1]
	assert.Equal(t, "op-600", hdf.Dataset)
	assert.Equal(t, "Operating point 600", hdf.Title)
	assert.Equal(t, domain.MediaTypeHDF5, hdf.MediaType)
	assert.Equal(t, sha256Sum(hdfContent), hdf.Checksum)

	// Media type inferred from the locator suffix.
	assert.Equal(t, domain.MediaTypeCSV, refs[0].MediaType)
	assert.True(t, refs[0].Checksum.IsZero())
}

func TestResolve_Constraints(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(nil))
	ctx := context.Background()

	tests := []struct {
		name   string
		intent domain.Intent
		want   []string
	}{
		{
			name:   "condition",
			intent: domain.Intent{Conditions: map[string]string{"rotational_speed": "1200"}},
			want:   []string{"https://data.example.org/op-1200.hdf"},
		},
		{
			name: "condition and media type",
			intent: domain.Intent{
				Fan:        "Unit-42",
				Conditions: map[string]string{"rotational_speed": "600"},
				MediaType:  domain.MediaTypeHDF5,
			},
			want: []string{"https://data.example.org/op-600.hdf"},
		},
		{
			name:   "quantity",
			intent: domain.Intent{Quantity: "static_pressure_difference"},
			want:   []string{"https://data.example.org/op-600.csv", "https://data.example.org/op-600.hdf"},
		},
		{
			name:   "creator",
			intent: domain.Intent{Creator: "Matthias Probst", MediaType: domain.MediaTypeCSV},
			want:   []string{"https://data.example.org/op-600.csv"},
		},
		{
			name:   "dataset",
			intent: domain.Intent{Dataset: "op-1200"},
			want:   []string{"https://data.example.org/op-1200.hdf"},
		},
		{
			name:   "media type only",
			intent: domain.Intent{MediaType: domain.MediaTypeHDF5},
			want:   []string{"https://data.example.org/op-600.hdf", "https://data.example.org/op-1200.hdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := svc.Resolve(ctx, tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, locators(refs))
		})
	}
}

func TestResolve_DatasetIntentSetsDataset(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(nil))

	refs, err := svc.Resolve(context.Background(), domain.Intent{Dataset: "op-1200"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "op-1200", refs[0].Dataset)
}

func TestResolve_NoMatchIsEmpty(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(nil))

	refs, err := svc.Resolve(context.Background(), domain.Intent{Fan: "Unit-99"})

	require.NoError(t, err)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestResolve_Deterministic(t *testing.T) {
	intent := domain.Intent{Fan: "Unit-42"}

	forward := newSQLiteMetadata(t)
	loadFanMetadata(t, forward, false)
	backward := newSQLiteMetadata(t)
	loadFanMetadata(t, backward, true)

	a := NewResolutionService(forward, nil, domain.NewWorkspace(t.TempDir()), nil)
	b := NewResolutionService(backward, nil, domain.NewWorkspace(t.TempDir()), nil)

	first, err := a.Resolve(context.Background(), intent)
	require.NoError(t, err)
	again, err := a.Resolve(context.Background(), intent)
	require.NoError(t, err)
	reversed, err := b.Resolve(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, first, reversed)
}

func TestResolve_BeforeLoad(t *testing.T) {
	svc := NewResolutionService(newSQLiteMetadata(t), nil, domain.NewWorkspace(t.TempDir()), nil)

	_, err := svc.Resolve(context.Background(), domain.Intent{Fan: "Unit-42"})
	assert.ErrorIs(t, err, domain.ErrNothingLoaded)
}

func TestResolve_RecordsMetrics(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(nil))
	rec := &recorder{}
	svc.metrics = rec

	_, err := svc.Resolve(context.Background(), domain.Intent{Fan: "Unit-42"})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, rec.resolve)
}

func TestIntentPattern_CompilesForEveryLanguage(t *testing.T) {
	p := IntentPattern(domain.Intent{
		Fan:        "Unit-42",
		Quantity:   "static_pressure_difference",
		Conditions: map[string]string{"rotational_speed": "600", "inlet_temperature": "293"},
		Creator:    "Matthias Probst",
	})
	require.NoError(t, p.Validate())

	sparql, err := query.Compile(p, domain.LanguageSPARQL)
	require.NoError(t, err)
	assert.Contains(t, sparql, "OPTIONAL")
	assert.Contains(t, sparql, "<http://www.w3.org/ns/sosa/hasFeatureOfInterest>")
	assert.Equal(t, 1, strings.Count(sparql, "ORDER BY"))

	sql, err := query.Compile(p, domain.LanguageSQL)
	require.NoError(t, err)
	assert.Contains(t, sql, "LEFT JOIN")

	// Condition keys are emitted in sorted order.
	assert.Less(t, strings.Index(sparql, "inlet_temperature"), strings.Index(sparql, "rotational_speed"))
}

func TestMergeRows_SmallestValueWins(t *testing.T) {
	dist := domain.IRI("https://example.org/dist/1")
	url := domain.IRI("https://data.example.org/1.hdf")
	rows := []domain.Row{
		{varDist: dist, varURL: url, varTitle: domain.Literal("b title")},
		{varDist: dist, varURL: url, varTitle: domain.Literal("a title"), varMedia: domain.Literal("APPLICATION/X-HDF5")},
		{varDist: domain.Blank("b0"), varURL: domain.IRI("https://data.example.org/0.csv"), varSumValue: domain.Literal("ABC"), varSumAlg: domain.Literal("nope")},
	}

	refs := mergeRows(rows, domain.Intent{})

	require.Len(t, refs, 2)
	// A blank distribution is identified by its locator.
	assert.Equal(t, "https://data.example.org/0.csv", refs[0].ID)
	assert.True(t, refs[0].Checksum.IsZero())
	assert.Equal(t, "https://example.org/dist/1", refs[1].ID)
	assert.Equal(t, "a title", refs[1].Title)
	assert.Equal(t, domain.MediaTypeHDF5, refs[1].MediaType)
}

func TestMaterialize(t *testing.T) {
	fetcher := newBlobFetcher(map[string]string{
		"https://data.example.org/op-600.hdf": hdfContent,
		"https://data.example.org/op-600.csv": "speed,dp\n600,12\n",
		"https://data.example.org/tampered":   "changed after publication",
	})
	svc, ws := newResolution(t, fetcher)
	ctx := context.Background()

	hdf := domain.DataFileReference{ID: "hdf", Locator: "https://data.example.org/op-600.hdf", Checksum: sha256Sum(hdfContent)}
	refs := []domain.DataFileReference{
		hdf,
		{ID: "csv", Locator: "https://data.example.org/op-600.csv", MediaType: domain.MediaTypeCSV},
		{ID: "tampered", Locator: "https://data.example.org/tampered", Checksum: sha256Sum("original")},
		{ID: "gone", Locator: "https://data.example.org/missing.hdf"},
		{ID: "hdf-again", Locator: hdf.Locator, Checksum: hdf.Checksum},
		{ID: "nowhere"},
	}

	files, err := svc.Materialize(ctx, refs)

	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, 6, batch.Total)
	require.Len(t, batch.Failures, 3)
	assert.ErrorIs(t, batch.Failures[0].Err, domain.ErrIntegrity)
	assert.ErrorIs(t, batch.Failures[1].Err, domain.ErrNotFound)
	assert.ErrorIs(t, batch.Failures[2].Err, domain.ErrInvalidInput)
	assert.Equal(t, "nowhere", batch.Failures[2].ID)

	require.Len(t, files, 3)
	hdfPath, err := ws.CachePath(hdf)
	require.NoError(t, err)
	assert.Equal(t, hdfPath, files[0].Path)
	assert.Equal(t, files[0].Path, files[2].Path)
	assert.Equal(t, "hdf-again", files[2].Reference.ID)
	data, err := os.ReadFile(files[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "speed,dp\n600,12\n", string(data))

	// Content-addressed: identical references are fetched once.
	assert.Equal(t, 1, fetcher.callsFor(hdf.Locator))
	tamperedPath, err := ws.CachePath(refs[2])
	require.NoError(t, err)
	assert.NoFileExists(t, tamperedPath)
}

func TestMaterialize_ChecksumCannotLeaveCache(t *testing.T) {
	fetcher := newBlobFetcher(map[string]string{"https://data.example.org/a.h5": "data"})
	svc, ws := newResolution(t, fetcher)

	refs := []domain.DataFileReference{{
		ID:       "evil",
		Locator:  "https://data.example.org/a.h5",
		Checksum: domain.Checksum{Algorithm: domain.AlgorithmSHA256, Value: "../../../../outside"},
	}}
	files, err := svc.Materialize(context.Background(), refs)

	var batch *domain.BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 1)
	assert.ErrorIs(t, batch.Failures[0].Err, domain.ErrInvalidInput)
	assert.Empty(t, files)
	assert.Zero(t, fetcher.callsFor("https://data.example.org/a.h5"))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(ws.Root), "outside"))
}

func TestMergeRows_DropsMalformedChecksum(t *testing.T) {
	rows := []domain.Row{{
		varDist:     domain.IRI("https://example.org/dist/1"),
		varURL:      domain.IRI("https://data.example.org/1.hdf"),
		varSumAlg:   domain.IRI("http://spdx.org/rdf/terms#checksumAlgorithm_sha256"),
		varSumValue: domain.Literal("../../../../outside"),
	}}

	refs := mergeRows(rows, domain.Intent{})

	require.Len(t, refs, 1)
	assert.True(t, refs[0].Checksum.IsZero())
}

func TestMaterialize_Cancelled(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(map[string]string{"https://x/1": "1"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files, err := svc.Materialize(ctx, []domain.DataFileReference{{Locator: "https://x/1"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, files)
}

func TestMaterialize_Empty(t *testing.T) {
	svc, _ := newResolution(t, newBlobFetcher(nil))

	files, err := svc.Materialize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}
