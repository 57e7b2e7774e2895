package usecase

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/dbackup/internal/domain"
)

// Backup dumps, uploads and removes one archive per project, all projects at once.
type Backup struct {
	dumper      domain.Dumper
	uploader    domain.Uploader
	remover     domain.FileRemover
	logger      Logger
	tempDir     string
	concurrency int
	now         func() time.Time
}

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type BackupOption func(*Backup)

// WithConcurrency caps how many jobs run at the same time. Zero or less means no cap.
func WithConcurrency(n int) BackupOption {
	return func(b *Backup) { b.concurrency = n }
}

// WithTempDir sets where archives are written before upload.
func WithTempDir(dir string) BackupOption {
	return func(b *Backup) {
		if dir != "" {
			b.tempDir = dir
		}
	}
}

func WithClock(now func() time.Time) BackupOption {
	return func(b *Backup) { b.now = now }
}

func NewBackup(
	dumper domain.Dumper,
	uploader domain.Uploader,
	remover domain.FileRemover,
	logger Logger,
	opts ...BackupOption,
) *Backup {
	b := &Backup{
		dumper:   dumper,
		uploader: uploader,
		remover:  remover,
		logger:   logger,
		tempDir:  os.TempDir(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run backs up every project that has a connection string at the same index.
// It waits for all jobs and returns the combined stage errors of the failed ones.
func (uc *Backup) Run(ctx context.Context, projects, connStrings []string) (*domain.RunResult, error) {
	start := uc.now()
	timestamp := domain.RunTimestamp(start)
	uc.logger.Infof("Initiating DB backup(s) for %d project(s)...", len(projects))

	result := &domain.RunResult{
		Timestamp: timestamp,
		Jobs:      make([]domain.JobResult, len(projects)),
	}

	var g errgroup.Group
	if uc.concurrency > 0 {
		g.SetLimit(uc.concurrency)
	}

	for i, project := range projects {
		if i >= len(connStrings) || connStrings[i] == "" {
			uc.logger.Warnf("[%s] No database URL found, skipping", project)
			result.Jobs[i] = domain.JobResult{
				Job:    domain.BackupJob{Project: project},
				Status: domain.JobSkipped,
			}
			continue
		}

		job := newJob(uc.tempDir, project, connStrings[i], timestamp)
		g.Go(func() error {
			result.Jobs[i] = uc.runJob(ctx, job)
			return nil
		})
	}

	_ = g.Wait()

	err := result.Err()
	if err != nil {
		uc.logger.Errorf("DB backup finished in %s: %d succeeded, %d failed, %d skipped",
			time.Since(start).Round(time.Millisecond), result.Succeeded(), result.Failed(), result.Skipped())
		return result, err
	}

	uc.logger.Infof("DB backup complete in %s: %d succeeded, %d skipped",
		time.Since(start).Round(time.Millisecond), result.Succeeded(), result.Skipped())
	return result, nil
}

func (uc *Backup) runJob(ctx context.Context, job domain.BackupJob) domain.JobResult {
	fail := func(stage domain.Stage, err error) domain.JobResult {
		uc.logger.Errorf("[%s] %s failed: %v", job.Project, stage, err)
		return domain.JobResult{
			Job:    job,
			Status: domain.JobFailed,
			Err:    &domain.StageError{Stage: stage, Project: job.Project, Err: err},
		}
	}

	uc.logger.Infof("[%s] Dumping DB to %s...", job.Project, job.LocalPath)
	if err := uc.dumper.Dump(ctx, job.LocalPath, job.ConnectionString, job.Project); err != nil {
		return fail(domain.StageDump, err)
	}
	uc.logger.Infof("[%s] DB dumped to file", job.Project)

	uc.logger.Infof("[%s] Uploading backup %s...", job.Project, job.RemoteKey)
	if err := uc.uploader.Upload(ctx, job.LocalPath, job.RemoteKey); err != nil {
		return fail(domain.StageUpload, err)
	}
	uc.logger.Infof("[%s] Backup %s uploaded", job.Project, job.RemoteKey)

	res := domain.JobResult{Job: job, Status: domain.JobSucceeded}

	uc.logger.Infof("[%s] Deleting file %s...", job.Project, job.LocalPath)
	if err := uc.remover.Remove(job.LocalPath); err != nil {
		uc.logger.Warnf("[%s] Failed to delete local file %s: %v", job.Project, job.LocalPath, err)
		res.DeleteErr = &domain.StageError{Stage: domain.StageDelete, Project: job.Project, Err: err}
	}

	return res
}
