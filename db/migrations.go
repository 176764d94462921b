// Package db carries the console schema migrations so binaries run without a
// checkout of the repository.
package db

import "embed"

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the goose files.
const MigrationsDir = "migrations"

// Migrations returns the embedded migration files.
func Migrations() embed.FS {
	return migrations
}
