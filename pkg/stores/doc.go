// Package stores persists sky-install run history in SQLite: one row per
// command invocation, per executed pipeline step and per staged artifact.
package stores
