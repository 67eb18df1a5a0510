// Package schemas carries the bundled OpenAPI document and the command tree
// compiled from it.
package schemas

import _ "embed"

// OpenAPI is the source document the embedded tree was compiled from.
//
//go:embed openapi.yaml
var OpenAPI []byte

// CommandTree is the compiled tree the CLI uses when no --tree override is
// given. Regenerate with `cloudflare compile`.
//
//go:embed command_tree.json
var CommandTree []byte
