package mcp

import (
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Resolution resolves intents and fetches data files.
	Resolution driving.ResolutionService

	// Metadata enables the query tool and the status resource.
	Metadata driving.MetadataService

	// Profiles enables the profile resource.
	Profiles driving.ProfileService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Resolution == nil {
		return ErrMissingResolutionService
	}
	return nil
}
