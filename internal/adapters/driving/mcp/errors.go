// Package mcp exposes the resolution engine as a Model Context Protocol
// server so assistants can resolve and fetch fan measurement data.
package mcp

import "errors"

// ErrMissingResolutionService is returned when the resolution service is not provided.
var ErrMissingResolutionService = errors.New("mcp: resolution service is required")
