package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/semmidev/dbackup/internal/domain"
)

// Cleanup prunes remote backups older than the retention window.
type Cleanup struct {
	storage       domain.Storage
	logger        Logger
	retentionDays int
	now           func() time.Time
}

func NewCleanup(
	storage domain.Storage,
	logger Logger,
	retentionDays int,
) *Cleanup {
	return &Cleanup{
		storage:       storage,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Execute deletes old backups and returns how many were removed.
// A non-positive retention disables pruning.
func (uc *Cleanup) Execute(ctx context.Context) (int, error) {
	if uc.retentionDays <= 0 {
		return 0, nil
	}

	uc.logger.Infof("Starting cleanup, retention: %d days", uc.retentionDays)
	cutoff := uc.now().AddDate(0, 0, -uc.retentionDays)

	files, err := uc.storage.GetOldFiles(ctx, cutoff)
	if err != nil {
		uc.logger.Warnf("Listing old files failed, falling back to filename timestamps: %v", err)
		files, err = uc.fallbackListFiles(ctx, cutoff)
		if err != nil {
			return 0, err
		}
	}

	deleted := 0
	for _, filename := range files {
		if !strings.HasPrefix(filename, backupPrefix) {
			continue
		}
		uc.logger.Infof("Deleting old backup: %s", filename)

		if err := uc.storage.Delete(ctx, filename); err != nil {
			uc.logger.Errorf("Failed to delete %s: %v", filename, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Cleanup completed, deleted %d old backup(s)", deleted)
	return deleted, nil
}

func (uc *Cleanup) fallbackListFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	files, err := uc.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	oldFiles := make([]string, 0)
	for _, filename := range files {
		timestamp, err := extractTimestamp(filename)
		if err != nil {
			uc.logger.Warnf("Could not parse timestamp from %s: %v", filename, err)
			continue
		}

		if timestamp.Before(cutoff) {
			oldFiles = append(oldFiles, filename)
		}
	}

	return oldFiles, nil
}
