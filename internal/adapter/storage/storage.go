package storage

import (
	"context"
	"fmt"

	"github.com/semmidev/dbackup/internal/config"
	"github.com/semmidev/dbackup/internal/domain"
)

// New builds the storage backend selected by cfg.Type.
func New(ctx context.Context, cfg *config.StorageConfig) (domain.Storage, error) {
	switch cfg.Type {
	case config.StorageS3:
		s, err := NewS3(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageGDrive:
		s, err := NewGDrive(ctx, &cfg.GDrive)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageLocal:
		s, err := NewLocal(cfg.Local.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
