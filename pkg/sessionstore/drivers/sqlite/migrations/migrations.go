package migrations

import "embed"

// Migrations holds the schema for the sqlite session store.
//
//go:embed *.sql
var Migrations embed.FS
