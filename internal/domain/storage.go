package domain

import (
	"context"
	"time"
)

// Uploader sends a local file to remote storage under remoteName.
type Uploader interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
}

type Storage interface {
	Uploader
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}

// FileRemover deletes a local file.
type FileRemover interface {
	Remove(path string) error
}

// Notifier reports the outcome of a run.
type Notifier interface {
	Notify(ctx context.Context, result *RunResult) error
}
