// Package store archives finished match transcripts and their grades in
// SQLite. Schema changes live in migrations/*.sql and are applied in order
// when the store opens.
package store
