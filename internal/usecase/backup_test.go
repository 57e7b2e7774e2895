package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/semmidev/dbackup/internal/adapter/filesystem"
	"github.com/semmidev/dbackup/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) forProject(project string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if filepath.Base(e) == project {
			out = append(out, filepath.Dir(e))
		}
	}
	return out
}

type fakeDumper struct {
	rec      *recorder
	failures map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (d *fakeDumper) Dump(ctx context.Context, localPath, connString, project string) error {
	d.rec.add("dump/" + project)

	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		seen := d.maxSeen.Load()
		if n <= seen || d.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	if err := d.failures[project]; err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("archive of "+connString), 0o600)
}

type fakeUploader struct {
	rec      *recorder
	mu       sync.Mutex
	keys     []string
	failures map[string]error
}

func (u *fakeUploader) Upload(ctx context.Context, localPath, remoteName string) error {
	project := projectOf(remoteName)
	u.rec.add("upload/" + project)
	if err := u.failures[project]; err != nil {
		return err
	}
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	u.mu.Lock()
	u.keys = append(u.keys, remoteName)
	u.mu.Unlock()
	return nil
}

type recordingRemover struct {
	rec  *recorder
	next domain.FileRemover
}

func (r *recordingRemover) Remove(path string) error {
	r.rec.add("delete/" + projectOf(filepath.Base(path)))
	return r.next.Remove(path)
}

// projectOf pulls the project name back out of backup-<project>-<ts>.tar.gz.
func projectOf(name string) string {
	loc := timestampPattern.FindStringIndex(name)
	if loc == nil {
		return name
	}
	return name[len(backupPrefix) : loc[0]-1]
}

var fixedNow = time.Date(2024, 5, 1, 10, 20, 30, 123000000, time.UTC)

const fixedTimestamp = "2024-05-01T10-20-30-123Z"

func TestBackupRun(t *testing.T) {
	Convey("Given a backup orchestrator with fake collaborators", t, func() {
		tempDir, err := os.MkdirTemp("", "backup_usecase_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		rec := &recorder{}
		dumper := &fakeDumper{rec: rec, failures: map[string]error{}}
		uploader := &fakeUploader{rec: rec, failures: map[string]error{}}
		remover := &recordingRemover{rec: rec, next: filesystem.NewRemover()}
		ctx := context.Background()

		newUC := func(opts ...BackupOption) *Backup {
			opts = append([]BackupOption{WithTempDir(tempDir), WithClock(func() time.Time { return fixedNow })}, opts...)
			return NewBackup(dumper, uploader, remover, zap.NewNop().Sugar(), opts...)
		}

		Convey("When every project has a connection string", func() {
			result, err := newUC().Run(ctx, []string{"app", "billing"}, []string{"postgres://a", "postgres://b"})

			Convey("It should succeed", func() {
				So(err, ShouldBeNil)
				So(result.Succeeded(), ShouldEqual, 2)
				So(result.Timestamp, ShouldEqual, fixedTimestamp)
			})

			Convey("It should run every stage in order per job", func() {
				So(rec.forProject("app"), ShouldResemble, []string{"dump", "upload", "delete"})
				So(rec.forProject("billing"), ShouldResemble, []string{"dump", "upload", "delete"})
			})

			Convey("It should upload under distinct timestamped keys", func() {
				So(uploader.keys, ShouldHaveLength, 2)
				So(uploader.keys, ShouldContain, "backup-app-"+fixedTimestamp+".tar.gz")
				So(uploader.keys, ShouldContain, "backup-billing-"+fixedTimestamp+".tar.gz")
				So(result.Jobs[0].Job.LocalPath, ShouldNotEqual, result.Jobs[1].Job.LocalPath)
				So(result.Jobs[0].Job.LocalPath, ShouldEqual, filepath.Join(tempDir, "backup-app-"+fixedTimestamp+".tar.gz"))
			})

			Convey("It should leave no local archives behind", func() {
				entries, err := os.ReadDir(tempDir)
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When a connection string is missing", func() {
			result, err := newUC().Run(ctx, []string{"app", "billing"}, []string{"postgres://a"})

			Convey("It should skip that project without failing", func() {
				So(err, ShouldBeNil)
				So(result.Succeeded(), ShouldEqual, 1)
				So(result.Skipped(), ShouldEqual, 1)
				So(result.Jobs[1].Status, ShouldEqual, domain.JobSkipped)
				So(rec.forProject("billing"), ShouldBeEmpty)
			})
		})

		Convey("When a connection string is empty", func() {
			result, err := newUC().Run(ctx, []string{"app", "billing"}, []string{"", "postgres://b"})

			Convey("It should skip that project", func() {
				So(err, ShouldBeNil)
				So(result.Jobs[0].Status, ShouldEqual, domain.JobSkipped)
				So(result.Jobs[1].Status, ShouldEqual, domain.JobSucceeded)
			})
		})

		Convey("When the dump fails for one project", func() {
			dumper.failures["billing"] = &domain.DumpError{Stderr: "Error: permission denied", Err: domain.ErrDumpOutput}
			result, err := newUC().Run(ctx, []string{"app", "billing"}, []string{"postgres://a", "postgres://b"})

			Convey("It should never upload or delete for it", func() {
				So(rec.forProject("billing"), ShouldResemble, []string{"dump"})
			})

			Convey("It should still finish the other project", func() {
				So(rec.forProject("app"), ShouldResemble, []string{"dump", "upload", "delete"})
				So(result.Jobs[0].Status, ShouldEqual, domain.JobSucceeded)
			})

			Convey("It should report the dump stage", func() {
				So(err, ShouldNotBeNil)
				var stageErr *domain.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Stage, ShouldEqual, domain.StageDump)
				So(stageErr.Project, ShouldEqual, "billing")
				So(err.Error(), ShouldContainSubstring, "permission denied")
			})
		})

		Convey("When the upload fails for one project", func() {
			uploader.failures["billing"] = errors.New("network error")
			result, err := newUC().Run(ctx, []string{"app", "billing"}, []string{"postgres://a", "postgres://b"})

			Convey("It should fail the run naming the project and stage", func() {
				So(err, ShouldNotBeNil)
				errs := multierr.Errors(err)
				So(errs, ShouldHaveLength, 1)
				So(err.Error(), ShouldEqual, "upload billing: network error")
				So(result.Failed(), ShouldEqual, 1)
				So(result.Succeeded(), ShouldEqual, 1)
			})

			Convey("It should delete only the uploaded archive", func() {
				_, appErr := os.Stat(result.Jobs[0].Job.LocalPath)
				So(os.IsNotExist(appErr), ShouldBeTrue)

				_, billingErr := os.Stat(result.Jobs[1].Job.LocalPath)
				So(billingErr, ShouldBeNil)
				So(rec.forProject("billing"), ShouldResemble, []string{"dump", "upload"})
			})
		})

		Convey("When several projects fail", func() {
			dumper.failures["app"] = errors.New("exit status 1")
			uploader.failures["billing"] = errors.New("access denied")
			_, err := newUC().Run(ctx, []string{"app", "billing", "crm"}, []string{"postgres://a", "postgres://b", "postgres://c"})

			Convey("It should report every failure", func() {
				errs := multierr.Errors(err)
				So(errs, ShouldHaveLength, 2)
				So(errs[0].Error(), ShouldStartWith, "dump app")
				So(errs[1].Error(), ShouldStartWith, "upload billing")
			})
		})

		Convey("When the local delete fails", func() {
			uc := NewBackup(dumper, uploader, failingRemover{}, zap.NewNop().Sugar(),
				WithTempDir(tempDir), WithClock(func() time.Time { return fixedNow }))
			result, err := uc.Run(ctx, []string{"app"}, []string{"postgres://a"})

			Convey("It should keep the job successful and record the delete error", func() {
				So(err, ShouldBeNil)
				So(result.Jobs[0].Status, ShouldEqual, domain.JobSucceeded)
				So(result.Jobs[0].DeleteErr, ShouldNotBeNil)
				So(result.Jobs[0].DeleteErr.Error(), ShouldContainSubstring, "delete app")
			})
		})

		Convey("When no concurrency cap is set", func() {
			dumper.delay = 50 * time.Millisecond
			projects := []string{"a", "b", "c", "d", "e"}
			urls := []string{"pg://1", "pg://2", "pg://3", "pg://4", "pg://5"}
			_, err := newUC().Run(ctx, projects, urls)

			Convey("It should run all jobs at once", func() {
				So(err, ShouldBeNil)
				So(dumper.maxSeen.Load(), ShouldEqual, 5)
			})
		})

		Convey("When a concurrency cap is set", func() {
			dumper.delay = 20 * time.Millisecond
			projects := []string{"a", "b", "c", "d", "e"}
			urls := []string{"pg://1", "pg://2", "pg://3", "pg://4", "pg://5"}
			result, err := newUC(WithConcurrency(2)).Run(ctx, projects, urls)

			Convey("It should never exceed the cap", func() {
				So(err, ShouldBeNil)
				So(result.Succeeded(), ShouldEqual, 5)
				So(dumper.maxSeen.Load(), ShouldBeLessThanOrEqualTo, 2)
			})
		})
	})
}

type failingRemover struct{}

func (failingRemover) Remove(path string) error {
	return errors.New("read-only file system")
}

func TestExtractTimestamp(t *testing.T) {
	Convey("Given backup filenames", t, func() {
		Convey("It should parse the run timestamp back", func() {
			ts, err := extractTimestamp(backupFilename("app", fixedTimestamp))
			So(err, ShouldBeNil)
			So(ts.Equal(fixedNow), ShouldBeTrue)
		})

		Convey("It should handle project names with dashes", func() {
			ts, err := extractTimestamp(backupFilename("my-app-2", fixedTimestamp))
			So(err, ShouldBeNil)
			So(ts.Equal(fixedNow), ShouldBeTrue)
		})

		Convey("It should reject foreign files", func() {
			_, err := extractTimestamp("notes.txt")
			So(err, ShouldNotBeNil)

			_, err = extractTimestamp("backup-app.tar.gz")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no timestamp found")
		})
	})
}
