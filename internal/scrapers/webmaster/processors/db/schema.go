package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var remotePrefixes = []string{"libsql://", "https://", "http://", "wss://", "ws://"}

// Driver picks the sql driver for a dsn, remote libsql databases are addressed
// by url and everything else is a local sqlite file (or :memory:).
func Driver(dsn string) string {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(dsn, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}

// Open opens dsn and applies Schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open(Driver(dsn), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Driver(dsn), err)
	}
	if Driver(dsn) == "sqlite" {
		// sqlite serializes writers and every :memory: connection is its own database
		conn.SetMaxOpenConns(1)
	}
	_, err = conn.ExecContext(ctx, Schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return conn, nil
}
