package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata/sqlite"
	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
)

// blobFetcher serves artifacts from memory, verifying sha256 checksums
// like the real fetcher does.
type blobFetcher struct {
	mu    sync.Mutex
	blobs map[string]string
	calls map[string]int
}

func newBlobFetcher(blobs map[string]string) *blobFetcher {
	return &blobFetcher{blobs: blobs, calls: make(map[string]int)}
}

func (f *blobFetcher) Fetch(ctx context.Context, locator string, expected domain.Checksum, dest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls[locator]++
	content, ok := f.blobs[locator]
	f.mu.Unlock()
	if !ok {
		return "", &domain.NotFoundError{Locator: locator, StatusCode: 404}
	}
	if !expected.IsZero() {
		actual := sha256Hex(content)
		if !expected.Matches(actual) {
			return "", &domain.IntegrityError{Locator: locator, Algorithm: expected.Algorithm, Expected: expected.Value, Actual: actual}
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	return dest, os.WriteFile(dest, []byte(content), 0o644)
}

func (f *blobFetcher) callsFor(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Sum(s string) domain.Checksum {
	return domain.Checksum{Algorithm: domain.AlgorithmSHA256, Value: sha256Hex(s)}
}

// staticCatalog lists fixed releases.
type staticCatalog struct {
	versions []domain.ReleaseVersion
	err      error
}

func (c *staticCatalog) Kind() domain.CatalogKind { return domain.CatalogHTTP }

func (c *staticCatalog) ListVersions(_ context.Context, _ string) ([]domain.ReleaseVersion, error) {
	return c.versions, c.err
}

// fakeArchives hands out the same fetcher and catalog for every profile.
type fakeArchives struct {
	fetcher *blobFetcher
	catalog *staticCatalog
	records staticRecords
}

func (a *fakeArchives) Records(domain.SessionProfile, string) driven.RecordSource { return a.records }

// staticRecords serves archive records from memory.
type staticRecords map[string]domain.PublishedDataset

func (r staticRecords) Record(_ context.Context, id string) (*domain.PublishedDataset, error) {
	ds, ok := r[id]
	if !ok {
		return nil, &domain.NotFoundError{Locator: "record " + id, StatusCode: 404}
	}
	return &ds, nil
}

func (a *fakeArchives) Fetcher(domain.SessionProfile) driven.ArtifactFetcher { return a.fetcher }

func (a *fakeArchives) Catalog(domain.SessionProfile) (driven.VersionCatalog, error) {
	if a.catalog == nil {
		return nil, domain.ErrInvalidInput
	}
	return a.catalog, nil
}

// newSQLiteMetadata returns a metadata service over a fresh embedded store.
func newSQLiteMetadata(t *testing.T) *MetadataService {
	t.Helper()
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	svc := NewMetadataService(store, nil)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// Fan metadata used across the service tests: two operating points of fan
// Unit-42, the first with an HDF5 and a CSV file, the second with HDF5 only.
const hdfContent = "HDF5 operating point 600"

var fanMetadata = `@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix dct: <http://purl.org/dc/terms/> .
@prefix sosa: <http://www.w3.org/ns/sosa/> .
@prefix ssno: <https://matthiasprobst.github.io/ssno#> .
@prefix m4i: <http://w3id.org/nfdi4ing/metadata4ing#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
@prefix spdx: <http://spdx.org/rdf/terms#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

<https://example.org/fan/42> dct:identifier "Unit-42" .
<https://example.org/prop/dp> ssno:standardName "static_pressure_difference" .
<https://example.org/people/mp> foaf:name "Matthias Probst" .

<https://example.org/ds/op-600> a dcat:Dataset ;
    dct:identifier "op-600" ;
    sosa:hasFeatureOfInterest <https://example.org/fan/42> ;
    sosa:observedProperty <https://example.org/prop/dp> ;
    m4i:hasParameter <https://example.org/ds/op-600/speed> ;
    dct:creator <https://example.org/people/mp> ;
    dcat:distribution <https://example.org/dist/op-600-hdf>, <https://example.org/dist/op-600-csv> .

<https://example.org/ds/op-600/speed> ssno:standardName "rotational_speed" ;
    m4i:hasNumericalValue "600"^^xsd:integer .

<https://example.org/dist/op-600-hdf> dcat:downloadURL <https://data.example.org/op-600.hdf> ;
    dct:title "Operating point 600" ;
    dcat:mediaType <https://www.iana.org/assignments/media-types/application/x-hdf5> ;
    spdx:checksum <https://example.org/dist/op-600-hdf/checksum> .

<https://example.org/dist/op-600-hdf/checksum> spdx:algorithm spdx:checksumAlgorithm_sha256 ;
    spdx:checksumValue "` + sha256Hex(hdfContent) + `" .

<https://example.org/dist/op-600-csv> dcat:downloadURL <https://data.example.org/op-600.csv> .
`

const fanMetadataSecond = `<https://example.org/ds/op-1200> <http://purl.org/dc/terms/identifier> "op-1200" .
<https://example.org/ds/op-1200> <http://www.w3.org/ns/sosa/hasFeatureOfInterest> <https://example.org/fan/42> .
<https://example.org/ds/op-1200> <http://w3id.org/nfdi4ing/metadata4ing#hasParameter> <https://example.org/ds/op-1200/speed> .
<https://example.org/ds/op-1200/speed> <https://matthiasprobst.github.io/ssno#standardName> "rotational_speed" .
<https://example.org/ds/op-1200/speed> <http://w3id.org/nfdi4ing/metadata4ing#hasNumericalValue> "1200" .
<https://example.org/ds/op-1200> <http://www.w3.org/ns/dcat#distribution> <https://example.org/dist/op-1200-hdf> .
<https://example.org/dist/op-1200-hdf> <http://purl.org/dc/terms/identifier> "op-1200.hdf" .
<https://example.org/dist/op-1200-hdf> <http://www.w3.org/ns/dcat#downloadURL> <https://data.example.org/op-1200.hdf> .
<https://example.org/dist/op-1200-hdf> <http://www.w3.org/ns/dcat#mediaType> "application/x-hdf5" .
`

// loadFanMetadata writes both fixture documents and loads them in order.
func loadFanMetadata(t *testing.T, svc *MetadataService, reversed bool) {
	t.Helper()
	dir := t.TempDir()
	docs := []domain.Document{
		{Path: writeFile(t, dir, "op-600.ttl", fanMetadata), Format: domain.FormatTurtle},
		{Path: writeFile(t, dir, "op-1200.nt", fanMetadataSecond), Format: domain.FormatNTriples},
	}
	if reversed {
		docs[0], docs[1] = docs[1], docs[0]
	}
	_, err := svc.Load(context.Background(), docs)
	require.NoError(t, err)
}
