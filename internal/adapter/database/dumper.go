package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/semmidev/dbackup/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Router implements domain.Dumper by handing each connection string to the
// engine registered for its URL scheme and gzipping the engine's stdout.
type Router struct {
	databases  []domain.Database
	compressor domain.Compressor
	logger     Logger
}

var errorPattern = regexp.MustCompile(`(?i)error`)

var ErrUnsupportedScheme = errors.New("unsupported connection string scheme")

func NewRouter(compressor domain.Compressor, logger Logger, databases ...domain.Database) *Router {
	return &Router{
		databases:  databases,
		compressor: compressor,
		logger:     logger,
	}
}

// NewDefaultRouter registers the PostgreSQL, MySQL and MongoDB engines.
func NewDefaultRouter(compressor domain.Compressor, logger Logger) *Router {
	return NewRouter(compressor, logger, NewPostgreSQL(), NewMySQL(), NewMongoDB())
}

func (r *Router) Dump(ctx context.Context, localPath, connString, project string) error {
	u, err := url.Parse(connString)
	if err != nil {
		return errors.New("parse connection string: malformed URL")
	}

	db, err := r.engineFor(u.Scheme)
	if err != nil {
		return err
	}
	r.logger.Infof("[%s] Dumping %s with %s", project, u.Redacted(), db.Name())

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	var stderr bytes.Buffer
	runErr, writeErr := r.stream(ctx, db, connString, file, &stderr)
	diag := strings.TrimRight(stderr.String(), " \t\r\n")

	switch {
	case runErr != nil:
		os.Remove(localPath)
		return &domain.DumpError{Stderr: diag, Err: fmt.Errorf("%s failed: %w", db.Name(), runErr)}
	case errorPattern.MatchString(diag):
		os.Remove(localPath)
		return &domain.DumpError{Stderr: diag, Err: domain.ErrDumpOutput}
	case writeErr != nil:
		os.Remove(localPath)
		return fmt.Errorf("failed to write archive: %w", writeErr)
	}

	if diag != "" {
		r.logger.Warnf("[%s] %s succeeded with stderr warnings:\n%s", project, db.Name(), diag)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	r.logger.Infof("[%s] Backup size: %s", project, humanize.Bytes(uint64(info.Size())))

	return nil
}

// stream runs the engine into a gzip writer on file. It reports the engine
// error separately from errors flushing or closing the archive.
func (r *Router) stream(ctx context.Context, db domain.Database, connString string, file *os.File, stderr *bytes.Buffer) (runErr, writeErr error) {
	zw, err := r.compressor.NewWriter(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	runErr = db.Dump(ctx, connString, zw, stderr)

	writeErr = zw.Close()
	if err := file.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	return runErr, writeErr
}

func (r *Router) engineFor(scheme string) (domain.Database, error) {
	scheme = strings.ToLower(scheme)
	for _, db := range r.databases {
		if db.Supports(scheme) {
			return db, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

func run(ctx context.Context, binary string, args, env []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
