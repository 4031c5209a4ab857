// Package archive implements the remote archive side of the client: the
// artifact fetcher and the release version catalogs.
//
// Fetcher downloads immutable blobs over HTTP(S) or from file:// URLs into
// the workspace. Content is hashed while it streams into a temporary file
// and only renamed into place after verification, so a destination either
// holds verified content or does not exist. Transient failures are retried
// with exponential backoff; requests are throttled per archive.
//
// Catalogs list published releases newest first:
//
//   - HTTPCatalog: a static JSON version index
//   - ZenodoCatalog: versions of a Zenodo record
//   - GitHubCatalog: releases of a GitHub repository
package archive
