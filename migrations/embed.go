// Package migrations holds the goose SQL migrations for the itinerary schema.
// cmd/api applies them on start when MIGRATE_ON_START is set; testutil and the
// repo integration tests apply them to the test database.
package migrations

import "embed"

// FS is passed to goose.NewProvider.
//
//go:embed *.sql
var FS embed.FS
