// Package db embeds the SQL schema applied on startup.
package db

import _ "embed"

// Schema holds the DDL for the catalog, range, offer, and order discount
// tables. Statements are idempotent so applying the schema to an existing
// database is safe.
//
//go:embed migrations/001_schema.sql
var Schema string
