// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ArtifactFetcher: Downloads immutable blobs with integrity verification
//   - VersionCatalog: Lists published releases of the database
//   - ArchiveFactory: Builds fetchers and catalogs for a session profile
//   - MetadataStore: Loads RDF documents and answers queries (sqlite, graphdb, sparql)
//   - MetadataStoreFactory: Selects the store implementation for a profile
//   - ConfigStore: Persistent profile configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
