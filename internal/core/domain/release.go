package domain

import (
	"fmt"
	"strings"
	"time"
)

// MetadataDocumentDescriptor names one retrievable metadata document of a
// release.
type MetadataDocumentDescriptor struct {
	// ID is unique within a configuration.
	ID string

	// Locator is the remote address of the immutable document blob.
	Locator string

	// Checksum is the expected digest; zero means unverified.
	Checksum Checksum

	// Path is the workspace-relative location below the metadata directory.
	Path string

	// Format is the RDF serialisation of the document.
	Format Format

	// MediaType is the media type as published.
	MediaType string
}

// ReleaseConfiguration is an immutable, versioned list of metadata
// documents belonging to one database release.
type ReleaseConfiguration struct {
	// Version is the release tag (e.g. "1.3").
	Version string

	descriptors []MetadataDocumentDescriptor
	index       map[string]int
}

// NewReleaseConfiguration builds a configuration. Callers are expected to
// have validated identifier uniqueness; later duplicates are ignored by Descriptor.
func NewReleaseConfiguration(version string, descriptors []MetadataDocumentDescriptor) *ReleaseConfiguration {
	c := &ReleaseConfiguration{
		Version:     version,
		descriptors: make([]MetadataDocumentDescriptor, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}
	copy(c.descriptors, descriptors)
	for i, d := range c.descriptors {
		if _, ok := c.index[d.ID]; !ok {
			c.index[d.ID] = i
		}
	}
	return c
}

// Descriptors returns a copy of the descriptors in configuration order.
func (c *ReleaseConfiguration) Descriptors() []MetadataDocumentDescriptor {
	out := make([]MetadataDocumentDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Descriptor looks up a descriptor by identifier.
func (c *ReleaseConfiguration) Descriptor(id string) (MetadataDocumentDescriptor, bool) {
	i, ok := c.index[id]
	if !ok {
		return MetadataDocumentDescriptor{}, false
	}
	return c.descriptors[i], true
}

// Len returns the number of descriptors.
func (c *ReleaseConfiguration) Len() int {
	return len(c.descriptors)
}

// ReleaseVersion is one published release of a catalog.
type ReleaseVersion struct {
	// Version is the release tag.
	Version string

	// Locator addresses the release configuration document.
	Locator string

	// Checksum of the configuration document, if published.
	Checksum Checksum

	// Published is the publication time, if known.
	Published time.Time
}

// Latest returns the first release of a list in descending recency.
func Latest(versions []ReleaseVersion) (ReleaseVersion, error) {
	if len(versions) == 0 {
		return ReleaseVersion{}, fmt.Errorf("%w: catalog lists no release", ErrNotFound)
	}
	return versions[0], nil
}

// FindVersion returns the release with the given tag. "1.3" and "v1.3"
// denote the same release.
func FindVersion(versions []ReleaseVersion, version string) (ReleaseVersion, error) {
	want := strings.TrimPrefix(version, "v")
	for _, v := range versions {
		if strings.TrimPrefix(v.Version, "v") == want {
			return v, nil
		}
	}
	return ReleaseVersion{}, fmt.Errorf("%w: release %q", ErrNotFound, version)
}

// PublishedFile is one file of an archive record.
type PublishedFile struct {
	Name      string
	Locator   string
	MediaType string
	Checksum  Checksum
}

// PublishedDataset is an archive record, or a set of local files, listed
// as one dataset of a generated release configuration.
type PublishedDataset struct {
	// ID becomes the dct:identifier of the dataset.
	ID string

	// IRI names the dataset node; empty means a blank node.
	IRI string

	Title string
	Files []PublishedFile
}
