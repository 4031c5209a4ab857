package releaseconfig

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// yamlConfig is the plain YAML rendition of a release configuration:
//
//	version: "1.3"
//	documents:
//	  - id: fan
//	    locator: https://zenodo.org/records/1/files/fan.ttl
//	    checksum: md5:0cc175b9c0f1b6a831c399e269772661
//	    format: turtle
type yamlConfig struct {
	Version   string         `yaml:"version"`
	Documents []yamlDocument `yaml:"documents"`
}

type yamlDocument struct {
	ID        string `yaml:"id"`
	Locator   string `yaml:"locator"`
	Checksum  string `yaml:"checksum"`
	Path      string `yaml:"path"`
	Format    string `yaml:"format"`
	MediaType string `yaml:"media_type"`
}

func parseYAML(data []byte) (*domain.ReleaseConfiguration, error) {
	var cfg yamlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.MalformedConfigError{Reason: err.Error()}
	}

	descriptors := make([]domain.MetadataDocumentDescriptor, 0, len(cfg.Documents))
	for i, doc := range cfg.Documents {
		if doc.ID == "" {
			return nil, &domain.MalformedConfigError{Reason: "document " + strconv.Itoa(i) + " has no id"}
		}
		if doc.Locator == "" {
			return nil, &domain.MalformedConfigError{Descriptor: doc.ID, Reason: "missing locator"}
		}

		checksum, err := domain.ParseChecksum(doc.Checksum)
		if err != nil {
			return nil, &domain.MalformedConfigError{Descriptor: doc.ID, Reason: err.Error()}
		}

		format, mediaType, err := documentFormat(doc)
		if err != nil {
			return nil, &domain.MalformedConfigError{Descriptor: doc.ID, Reason: err.Error()}
		}

		desc := domain.MetadataDocumentDescriptor{
			ID:        doc.ID,
			Locator:   doc.Locator,
			Checksum:  checksum,
			Path:      doc.Path,
			Format:    format,
			MediaType: mediaType,
		}
		if desc.Path == "" {
			desc.Path = defaultPath(desc)
		}
		descriptors = append(descriptors, desc)
	}

	return validate(cfg.Version, descriptors)
}

// documentFormat prefers the explicit format, then the media type, then
// the locator suffix.
func documentFormat(doc yamlDocument) (domain.Format, string, error) {
	if doc.Format != "" {
		f, err := domain.ParseFormat(doc.Format)
		if err != nil {
			return "", "", err
		}
		return f, f.MediaType(), nil
	}
	if doc.MediaType != "" {
		mt := domain.ParseMediaType(doc.MediaType)
		if f, ok := domain.FormatFromMediaType(mt); ok {
			return f, mt, nil
		}
	}
	name := doc.Path
	if name == "" {
		name = doc.Locator
	}
	f, err := domain.FormatFromPath(name)
	if err != nil {
		return "", "", err
	}
	return f, f.MediaType(), nil
}
