// Package releaseconfig parses release configurations into a flat,
// validated list of metadata document descriptors.
//
// Two syntaxes are accepted. The published form is a DCAT catalog in any
// RDF serialisation: each dcat:Dataset with a dct:identifier contributes
// one descriptor per metadata distribution (dcat:downloadURL, dcat:mediaType
// and an optional spdx:checksum). Distributions of other media types, such as
// CAD models or HDF5 files, are data artifacts and are skipped. The plain
// form is a YAML document list.
//
// Invalid input fails with *domain.MalformedConfigError.
package releaseconfig
