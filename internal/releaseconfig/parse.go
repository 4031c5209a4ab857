package releaseconfig

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// FormatYAML selects the YAML configuration syntax.
const FormatYAML = "yaml"

// Parse decodes a release configuration. format is "yaml" or an RDF
// format name accepted by domain.ParseFormat.
func Parse(data []byte, format string) (*domain.ReleaseConfiguration, error) {
	if isYAML(format) {
		return parseYAML(data)
	}
	f, err := domain.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	triples, err := rdfio.DecodeBytes(data, f, "release configuration")
	if err != nil {
		return nil, &domain.MalformedConfigError{Reason: err.Error()}
	}
	return parseDCAT(triples)
}

// ParseFile reads and parses a configuration file. An empty format is
// inferred from the file suffix.
func ParseFile(p, format string) (*domain.ReleaseConfiguration, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	if format == "" {
		format, err = DetectFormat(p)
		if err != nil {
			return nil, err
		}
	}
	return Parse(data, format)
}

// DetectFormat infers the configuration syntax from a file name.
func DetectFormat(name string) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	f, err := domain.FormatFromPath(name)
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

// Suffix returns the file suffix for a configuration syntax.
func Suffix(format string) string {
	if isYAML(format) {
		return ".yaml"
	}
	if f, err := domain.ParseFormat(format); err == nil {
		return f.Suffix()
	}
	return ""
}

// ResolvePaths maps every descriptor to the local path of its document
// below workingDir. It performs no I/O. The mapping is injective for any
// configuration accepted by Parse.
func ResolvePaths(cfg *domain.ReleaseConfiguration, workingDir string) map[string]string {
	ws := domain.NewWorkspace(workingDir)
	paths := make(map[string]string, cfg.Len())
	for _, d := range cfg.Descriptors() {
		paths[d.ID] = ws.MetadataPath(d)
	}
	return paths
}

func isYAML(format string) bool {
	f := strings.ToLower(format)
	return f == FormatYAML || f == "yml"
}

// defaultPath is "<escaped id>/<file name>". Identifiers are unique and
// escaping keeps them a single path element, so distinct descriptors never
// share a directory.
func defaultPath(d domain.MetadataDocumentDescriptor) string {
	return url.PathEscape(d.ID) + "/" + fileName(d)
}

func fileName(d domain.MetadataDocumentDescriptor) string {
	name := domain.DataFileReference{Locator: d.Locator, MediaType: d.MediaType}.FileName()
	if path.Ext(name) == "" || name == "data" {
		name = strings.TrimSuffix(name, path.Ext(name)) + d.Format.Suffix()
	}
	return name
}

// validate checks identifier uniqueness and path safety.
func validate(version string, descriptors []domain.MetadataDocumentDescriptor) (*domain.ReleaseConfiguration, error) {
	ids := make(map[string]struct{}, len(descriptors))
	paths := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		if _, dup := ids[d.ID]; dup {
			return nil, &domain.MalformedConfigError{Descriptor: d.ID, Reason: "duplicate identifier"}
		}
		ids[d.ID] = struct{}{}

		clean := path.Clean(filepath.ToSlash(d.Path))
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, &domain.MalformedConfigError{Descriptor: d.ID, Reason: "path " + strconv.Quote(d.Path) + " escapes the metadata directory"}
		}
		if other, clash := paths[clean]; clash {
			return nil, &domain.MalformedConfigError{Descriptor: d.ID, Reason: "path collides with descriptor " + strconv.Quote(other)}
		}
		paths[clean] = d.ID
	}
	return domain.NewReleaseConfiguration(version, descriptors), nil
}
