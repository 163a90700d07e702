// Package locales holds the translation files bundled into the binary.
package locales

import "embed"

// FS contains active.<lang>.toml message files.
//
//go:embed active.*.toml
var FS embed.FS

// Files lists the message files loaded at startup.
var Files = []string{"active.en.toml", "active.ja.toml"}
