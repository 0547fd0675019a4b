// Package migrations holds the sqlite schema for the model store.
package migrations

import "embed"

// FS contains the embedded sqlite migrations.
//
//go:embed *.sql
var FS embed.FS
