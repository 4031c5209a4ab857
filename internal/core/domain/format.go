package domain

import (
	"fmt"
	"path"
	"strings"
)

// Format identifies a textual RDF serialisation.
type Format string

// Supported metadata document formats.
const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatRDFXML   Format = "rdfxml"
	FormatJSONLD   Format = "jsonld"
)

// Media types seen in fan database releases. Only the RDF ones describe
// metadata documents; the rest are data artifacts.
const (
	MediaTypeTurtle   = "text/turtle"
	MediaTypeNTriples = "application/n-triples"
	MediaTypeNQuads   = "application/n-quads"
	MediaTypeRDFXML   = "application/rdf+xml"
	MediaTypeJSONLD   = "application/ld+json"
	MediaTypeHDF5     = "application/x-hdf5"
	MediaTypeIGES     = "model/iges"
	MediaTypeCSV      = "text/csv"
	MediaTypeText     = "text/plain"
)

// IsValid returns true if the format is recognised.
func (f Format) IsValid() bool {
	switch f {
	case FormatTurtle, FormatNTriples, FormatNQuads, FormatRDFXML, FormatJSONLD:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// MediaType returns the IANA media type of the format.
func (f Format) MediaType() string {
	switch f {
	case FormatTurtle:
		return MediaTypeTurtle
	case FormatNTriples:
		return MediaTypeNTriples
	case FormatNQuads:
		return MediaTypeNQuads
	case FormatRDFXML:
		return MediaTypeRDFXML
	case FormatJSONLD:
		return MediaTypeJSONLD
	default:
		return ""
	}
}

// Suffix returns the conventional file suffix including the dot.
func (f Format) Suffix() string {
	switch f {
	case FormatTurtle:
		return ".ttl"
	case FormatNTriples:
		return ".nt"
	case FormatNQuads:
		return ".nq"
	case FormatRDFXML:
		return ".rdf"
	case FormatJSONLD:
		return ".jsonld"
	default:
		return ""
	}
}

// ParseFormat accepts format names and common aliases ("ttl", "json-ld", "xml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "nquads", "n-quads", "nq":
		return FormatNQuads, nil
	case "rdfxml", "rdf/xml", "xml", "rdf":
		return FormatRDFXML, nil
	case "jsonld", "json-ld", "json":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("%w: format %q", ErrUnsupportedType, s)
	}
}

// FormatFromPath infers a format from a file name suffix.
func FormatFromPath(p string) (Format, error) {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".ttl":
		return FormatTurtle, nil
	case ".nt":
		return FormatNTriples, nil
	case ".nq":
		return FormatNQuads, nil
	case ".rdf", ".owl", ".xml":
		return FormatRDFXML, nil
	case ".jsonld", ".json-ld", ".json":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format of %q", ErrUnsupportedType, p)
	}
}

// ParseMediaType normalises a media type given as a bare string or as an
// IANA registry IRI such as
// "https://www.iana.org/assignments/media-types/text/turtle".
func ParseMediaType(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if i := strings.LastIndex(s, "media-types/"); i >= 0 {
			s = s[i+len("media-types/"):]
		}
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// FormatFromMediaType returns the RDF format for a media type and false
// when the media type does not describe a metadata document.
func FormatFromMediaType(mediaType string) (Format, bool) {
	switch ParseMediaType(mediaType) {
	case MediaTypeTurtle, "application/x-turtle", "ttl":
		return FormatTurtle, true
	case MediaTypeNTriples:
		return FormatNTriples, true
	case MediaTypeNQuads:
		return FormatNQuads, true
	case MediaTypeRDFXML, "application/xml":
		return FormatRDFXML, true
	case MediaTypeJSONLD, "application/json+ld":
		return FormatJSONLD, true
	default:
		return "", false
	}
}

// MediaTypeSuffix returns a file suffix for a data media type, used when a
// locator carries no file name extension.
func MediaTypeSuffix(mediaType string) string {
	mt := ParseMediaType(mediaType)
	if f, ok := FormatFromMediaType(mt); ok {
		return f.Suffix()
	}
	switch mt {
	case MediaTypeHDF5:
		return ".hdf5"
	case MediaTypeIGES, "igs":
		return ".igs"
	case MediaTypeCSV:
		return ".csv"
	case MediaTypeText:
		return ".txt"
	default:
		return ""
	}
}

// MediaTypeFromLocator infers a media type from the suffix of a locator
// or file name. Unknown suffixes give "".
func MediaTypeFromLocator(locator string) string {
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	switch strings.ToLower(path.Ext(locator)) {
	case ".hdf", ".hdf5", ".h5":
		return MediaTypeHDF5
	case ".csv":
		return MediaTypeCSV
	case ".igs", ".iges":
		return MediaTypeIGES
	case ".txt":
		return MediaTypeText
	}
	if f, err := FormatFromPath(locator); err == nil {
		return f.MediaType()
	}
	return ""
}
