// Package testdata holds change-set fixtures shared by tests.
package testdata

import "embed"

// Groups embedded under migrations/, one directory per group.
const (
	GroupGeneric = "generic"
	GroupAudit   = "audit"
)

//go:embed migrations/*/*.sql
var EmbedChangeSets embed.FS

// Dir returns the path of a group's directory within [EmbedChangeSets].
func Dir(group string) string {
	return "migrations/" + group
}
