package usecase

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/semmidev/dbackup/internal/domain"
)

const (
	backupPrefix    = "backup-"
	backupExtension = ".tar.gz"
)

func backupFilename(project, timestamp string) string {
	return backupPrefix + project + "-" + timestamp + backupExtension
}

func newJob(tempDir, project, connString, timestamp string) domain.BackupJob {
	name := backupFilename(project, timestamp)
	return domain.BackupJob{
		Project:          project,
		ConnectionString: connString,
		LocalPath:        filepath.Join(tempDir, name),
		RemoteKey:        name,
	}
}

var timestampPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})T(\d{2})-(\d{2})-(\d{2})-(\d{3})Z`)

// extractTimestamp reverses domain.RunTimestamp for a backup filename.
func extractTimestamp(filename string) (time.Time, error) {
	if !strings.HasPrefix(filename, backupPrefix) {
		return time.Time{}, fmt.Errorf("invalid filename format: missing %q prefix", backupPrefix)
	}

	m := timestampPattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid filename format: no timestamp found")
	}

	iso := fmt.Sprintf("%sT%s:%s:%s.%sZ", m[1], m[2], m[3], m[4], m[5])
	return time.Parse("2006-01-02T15:04:05.000Z", iso)
}
