// Package domain defines the core entities of the fan database client.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ReleaseConfiguration: the versioned list of metadata document descriptors
//   - Term, Triple, Row: values of the metadata graph and query solutions
//   - Intent, DataFileReference: input and output of resolution
//   - SessionProfile, Workspace: per-invocation session state
//   - The error taxonomy (NetworkError, IntegrityError, ParseError, ...)
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
