package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Intent is a constrained query template over the metadata graph. Empty
// fields do not constrain the result.
type Intent struct {
	// Fan is the identifier of the fan the data describes (e.g. "Unit-42").
	Fan string

	// Quantity is the standard name of the measured quantity.
	Quantity string

	// Conditions maps operating parameter standard names to values.
	Conditions map[string]string

	// Creator is the name of the agent that produced the data.
	Creator string

	// Dataset restricts the result to one dataset IRI.
	Dataset string

	// MediaType keeps only distributions of this media type.
	MediaType string
}

// IsEmpty returns true if the intent places no constraint.
func (i Intent) IsEmpty() bool {
	return i.Fan == "" && i.Quantity == "" && len(i.Conditions) == 0 &&
		i.Creator == "" && i.Dataset == "" && i.MediaType == ""
}

// String renders the intent in the form accepted by ParseIntent.
func (i Intent) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("fan", i.Fan)
	add("quantity", i.Quantity)
	keys := make([]string, 0, len(i.Conditions))
	for k := range i.Conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add("condition."+k, i.Conditions[k])
	}
	add("creator", i.Creator)
	add("dataset", i.Dataset)
	add("media", i.MediaType)
	return strings.Join(parts, " ")
}

// ParseIntent parses whitespace or comma separated key=value pairs:
//
//	fan=Unit-42 quantity=static_pressure condition.rotational_speed=600 media=application/x-hdf5
func ParseIntent(s string) (Intent, error) {
	var intent Intent
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ','
	})
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok || value == "" {
			return Intent{}, fmt.Errorf("%w: intent term %q is not key=value", ErrInvalidInput, f)
		}
		key = strings.ToLower(key)
		switch {
		case key == "fan":
			intent.Fan = value
		case key == "quantity" || key == "standard_name":
			intent.Quantity = value
		case strings.HasPrefix(key, "condition."):
			if intent.Conditions == nil {
				intent.Conditions = make(map[string]string)
			}
			intent.Conditions[strings.TrimPrefix(key, "condition.")] = value
		case key == "creator":
			intent.Creator = value
		case key == "dataset":
			intent.Dataset = value
		case key == "media" || key == "media_type":
			intent.MediaType = ParseMediaType(value)
		default:
			return Intent{}, fmt.Errorf("%w: unknown intent key %q", ErrInvalidInput, key)
		}
	}
	return intent, nil
}

// DataFileReference is a graph resource that identifies exactly one raw
// data artifact. It carries everything the fetcher needs.
type DataFileReference struct {
	// ID is the distribution IRI.
	ID string

	// Dataset is the IRI of the dataset the distribution belongs to.
	Dataset string

	// Locator is the download URL.
	Locator string

	// Checksum is the expected digest, zero if unpublished.
	Checksum Checksum

	// MediaType of the artifact, normalised.
	MediaType string

	// Title is a human-readable label, if present.
	Title string
}

// FileName returns the last path element of the locator, extended with a
// suffix from the media type when the locator has none.
func (r DataFileReference) FileName() string {
	name := r.Locator
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	segments := strings.Split(strings.TrimRight(name, "/"), "/")
	name = segments[len(segments)-1]
	// Zenodo serves files at .../files/<name>/content.
	if name == "content" && len(segments) > 1 {
		name = segments[len(segments)-2]
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `:\`) {
		name = "data"
	}
	if !strings.Contains(name, ".") {
		name += MediaTypeSuffix(r.MediaType)
	}
	return name
}

// LocalDataFile is a data artifact materialised in the workspace cache.
type LocalDataFile struct {
	Reference DataFileReference
	Path      string
}

// FanParameter is one parameter attached to a fan description, such as
// its nominal speed or impeller diameter.
type FanParameter struct {
	// IRI identifies the parameter node.
	IRI string

	// Name is the standard name, without its vocabulary prefix.
	Name string

	// Value is the numerical or string value.
	Value string

	// Unit is the unit IRI, when given.
	Unit string

	// Extra holds the remaining properties keyed by predicate IRI.
	Extra map[string]string
}
