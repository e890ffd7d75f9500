// Package appfs embeds the database migrations.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
