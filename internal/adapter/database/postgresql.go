package database

import (
	"context"
	"io"
)

// PostgreSQLDatabase dumps with pg_dump in tar format.
type PostgreSQLDatabase struct {
	binary string
}

func NewPostgreSQL() *PostgreSQLDatabase {
	return &PostgreSQLDatabase{binary: "pg_dump"}
}

func (p *PostgreSQLDatabase) Name() string {
	return "pg_dump"
}

func (p *PostgreSQLDatabase) Supports(scheme string) bool {
	return scheme == "postgres" || scheme == "postgresql"
}

func (p *PostgreSQLDatabase) Dump(ctx context.Context, connString string, stdout, stderr io.Writer) error {
	return run(ctx, p.binary, p.args(connString), nil, stdout, stderr)
}

func (p *PostgreSQLDatabase) args(connString string) []string {
	return []string{
		"--dbname=" + connString,
		"--format=tar",
	}
}
