// Package migrations embeds the sqlite schema migrations so both the migrate
// command and the test helpers apply the exact same schema.
package migrations

import "embed"

//go:embed sqlite/*.sql
var FS embed.FS

// Dir is the embedded directory holding the sqlite migration files.
const Dir = "sqlite"
