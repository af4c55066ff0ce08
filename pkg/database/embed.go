package database

import "embed"

// Migrations holds the SQL schema migrations shipped with the binary
//
//go:embed migrations/*.sql
var Migrations embed.FS
