// Package db embeds the database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the default bouquet catalog as a JSON array.
//
//go:embed seed/products.json
var Products []byte
