package rdfio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// DefaultPatterns match every supported document below a directory.
var DefaultPatterns = []string{"**/*.{ttl,nt,nq,rdf,owl,xml,jsonld}"}

// Discover lists the metadata documents below dir matching any of the
// doublestar patterns (relative to dir). Formats are inferred from the file
// suffix; files with an unknown suffix are skipped. The result is sorted by
// path.
func Discover(dir string, patterns []string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: glob pattern %q", domain.ErrInvalidInput, p)
		}
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var docs []domain.Document
	for _, p := range patterns {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			format, err := domain.FormatFromPath(m)
			if err != nil {
				continue
			}
			docs = append(docs, domain.Document{Path: filepath.Join(dir, filepath.FromSlash(m)), Format: format})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// IsDocument reports whether a file name has a supported metadata suffix.
func IsDocument(name string) bool {
	_, err := domain.FormatFromPath(name)
	return err == nil && !isHidden(name)
}

func isHidden(name string) bool {
	base := filepath.Base(name)
	return len(base) > 0 && base[0] == '.'
}
