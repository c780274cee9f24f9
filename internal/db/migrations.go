package db

import "embed"

// Migrations holds the golang-migrate SQL files, embedded so the binary can
// migrate without the source tree.
//
//go:embed migrations/*.sql
var Migrations embed.FS
