package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Workspace is the local directory tree owned by the client:
//
//	<root>/config/    downloaded release configurations
//	<root>/metadata/  metadata documents, mirroring descriptor paths
//	<root>/cache/     data files keyed by content hash
//	<root>/store/     embedded backend database
type Workspace struct {
	Root string
}

// NewWorkspace returns the workspace rooted at dir.
func NewWorkspace(dir string) Workspace {
	return Workspace{Root: filepath.Clean(dir)}
}

// ConfigDir holds downloaded release configurations.
func (w Workspace) ConfigDir() string {
	return filepath.Join(w.Root, "config")
}

// MetadataDir holds downloaded metadata documents.
func (w Workspace) MetadataDir() string {
	return filepath.Join(w.Root, "metadata")
}

// CacheDir holds materialised data files.
func (w Workspace) CacheDir() string {
	return filepath.Join(w.Root, "cache")
}

// StoreDir holds the embedded backend database.
func (w Workspace) StoreDir() string {
	return filepath.Join(w.Root, "store")
}

// ConfigPath returns where a release configuration is stored.
func (w Workspace) ConfigPath(version, suffix string) string {
	if version == "" {
		version = "local"
	}
	return filepath.Join(w.ConfigDir(), "release-"+version+suffix)
}

// MetadataPath returns where a descriptor's document is materialised.
func (w Workspace) MetadataPath(d MetadataDocumentDescriptor) string {
	return filepath.Join(w.MetadataDir(), filepath.FromSlash(d.Path))
}

// CachePath returns the content-addressed location of a data file.
// Identical content referenced by several distributions shares one path.
// Without a checksum the locator hash is used instead. The path always
// lies below CacheDir.
func (w Workspace) CachePath(ref DataFileReference) (string, error) {
	var p string
	if !ref.Checksum.IsZero() {
		if err := ref.Checksum.Validate(); err != nil {
			return "", err
		}
		p = filepath.Join(w.CacheDir(), ref.Checksum.Algorithm, ref.Checksum.Value, ref.FileName())
	} else {
		sum := sha256.Sum256([]byte(ref.Locator))
		p = filepath.Join(w.CacheDir(), "url", hex.EncodeToString(sum[:]), ref.FileName())
	}
	if !within(w.CacheDir(), p) {
		return "", fmt.Errorf("%w: cache path for %q leaves %s", ErrInvalidInput, ref.Locator, w.CacheDir())
	}
	return p, nil
}

// within reports whether p lies strictly below dir.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
