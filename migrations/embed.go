package migrations

import "embed"

// FS содержит *.up.sql, применяются в лексикографическом порядке
//
//go:embed *.up.sql
var FS embed.FS
