package domain

import (
	"context"
	"io"
)

// Dumper writes a compressed archive of the database at connString to localPath.
type Dumper interface {
	Dump(ctx context.Context, localPath, connString, project string) error
}

// Database is one dump engine, such as pg_dump or mysqldump.
type Database interface {
	Name() string
	Supports(scheme string) bool
	Dump(ctx context.Context, connString string, stdout, stderr io.Writer) error
}
