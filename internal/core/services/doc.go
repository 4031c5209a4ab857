// Package services implements the driving port interfaces.
// Services contain the core logic and orchestrate calls to driven ports
// (adapters): the profile state machine, the release initialisation
// pipeline, the metadata phase barrier and the resolution engine.
//
// Services depend on ports, never on concrete adapters. Tests wire them
// to the in-memory config store and the embedded sqlite backend.
package services
