package database

import (
	"context"
	"io"
)

// MongoDBDatabase writes a mongodump archive to stdout.
type MongoDBDatabase struct {
	binary string
}

func NewMongoDB() *MongoDBDatabase {
	return &MongoDBDatabase{binary: "mongodump"}
}

func (m *MongoDBDatabase) Name() string {
	return "mongodump"
}

func (m *MongoDBDatabase) Supports(scheme string) bool {
	return scheme == "mongodb" || scheme == "mongodb+srv"
}

func (m *MongoDBDatabase) Dump(ctx context.Context, connString string, stdout, stderr io.Writer) error {
	args := []string{
		"--uri=" + connString,
		"--archive",
	}
	return run(ctx, m.binary, args, nil, stdout, stderr)
}
