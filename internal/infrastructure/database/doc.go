// Package database provides the SQLite store used for the command log.
//
// Open configures the pool for SQLite's single-writer model and optionally
// enables WAL. Schema changes are embedded migration files applied with
// Migrate; see the migrations package at the repository root.
package database
