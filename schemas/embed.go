// Package schemas хранит JSON-схемы событий, которыми сервис обменивается через брокер.
package schemas

import "embed"

//go:embed events
var SchemasFS embed.FS
