// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML profile storage (~/.opencefadb/profiles.toml)
package file
