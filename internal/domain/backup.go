package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Stage names one step of a job's pipeline.
type Stage string

const (
	StageDump   Stage = "dump"
	StageUpload Stage = "upload"
	StageDelete Stage = "delete"
)

// BackupJob is one project's dump, upload and delete for a single run.
type BackupJob struct {
	Project          string
	ConnectionString string
	LocalPath        string
	RemoteKey        string
}

type JobStatus string

const (
	JobSkipped   JobStatus = "skipped"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type JobResult struct {
	Job    BackupJob
	Status JobStatus

	// Err is set when Status is JobFailed.
	Err *StageError

	// DeleteErr records a failed local cleanup. It never fails the job.
	DeleteErr error
}

type RunResult struct {
	Timestamp string
	Jobs      []JobResult
}

func (r *RunResult) count(status JobStatus) int {
	n := 0
	for _, j := range r.Jobs {
		if j.Status == status {
			n++
		}
	}
	return n
}

func (r *RunResult) Succeeded() int { return r.count(JobSucceeded) }
func (r *RunResult) Failed() int    { return r.count(JobFailed) }
func (r *RunResult) Skipped() int   { return r.count(JobSkipped) }

// Err combines the stage errors of every failed job, in project order.
func (r *RunResult) Err() error {
	var err error
	for _, j := range r.Jobs {
		if j.Status == JobFailed && j.Err != nil {
			err = multierr.Append(err, j.Err)
		}
	}
	return err
}

// StageError reports which stage of which project failed.
type StageError struct {
	Stage   Stage
	Project string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Project, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// DumpError carries the dump tool's diagnostic output.
type DumpError struct {
	Stderr string
	Err    error
}

var ErrDumpOutput = errors.New("dump tool reported an error")

func (e *DumpError) Error() string {
	if e.Stderr == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Stderr)
}

func (e *DumpError) Unwrap() error {
	return e.Err
}

// RunTimestamp renders t as an ISO-8601 UTC instant with ':' and '.' replaced by '-'.
func RunTimestamp(t time.Time) string {
	return timestampReplacer.Replace(t.UTC().Format(isoMillis))
}

const isoMillis = "2006-01-02T15:04:05.000Z"

var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")
