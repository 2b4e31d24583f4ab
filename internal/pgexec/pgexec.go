// Package pgexec launches pg_dump in custom-archive format and exposes its
// stdout as an io.Reader, for callers that want to rewrite a live dump
// without staging it to disk first. Grounded on the teacher's process
// lifecycle idiom (executor/camellia/manager.go's Manager), simplified
// from a long-lived proxy to a one-shot child whose stdout is piped
// straight into the driver.
package pgexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/ak4code/pgdumb/internal/logging"
)

// ErrProcessFailed wraps a non-zero pg_dump exit.
var ErrProcessFailed = errors.New("pgdumb: pg_dump failed")

const defaultBinary = "pg_dump"

// Options configures a pg_dump invocation.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Tables   []string
	// Binary overrides the pg_dump executable name/path.
	Binary string
}

func (o Options) binary() string {
	if o.Binary != "" {
		return o.Binary
	}
	return defaultBinary
}

// Launcher runs pg_dump -Fc and streams its stdout.
type Launcher struct {
	opts Options
	cmd  *exec.Cmd
}

// New returns a Launcher for opts.
func New(opts Options) *Launcher {
	return &Launcher{opts: opts}
}

// Start launches pg_dump with -Fc (custom format), connecting via the
// standard PG* environment variables so credentials never appear on the
// process argument list. It returns a reader over the child's stdout;
// callers must call Wait after fully draining it.
func (l *Launcher) Start(ctx context.Context) (io.Reader, error) {
	if l.cmd != nil {
		return nil, errors.New("pgexec: already started")
	}

	args := []string{"-Fc"}
	for _, t := range l.opts.Tables {
		args = append(args, "-t", t)
	}

	cmd := exec.CommandContext(ctx, l.opts.binary(), args...)
	cmd.Env = append(os.Environ(), buildEnv(l.opts)...)
	cmd.Stderr = logging.Writer()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pgexec: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pgexec: start %s: %w", l.opts.binary(), err)
	}
	logging.Info("started %s pid=%d database=%s tables=%v", l.opts.binary(), cmd.Process.Pid, l.opts.Database, l.opts.Tables)

	l.cmd = cmd
	return stdout, nil
}

// Wait blocks until pg_dump exits, returning ErrProcessFailed wrapping
// the exit error on non-zero status.
func (l *Launcher) Wait() error {
	if l.cmd == nil {
		return errors.New("pgexec: not started")
	}
	if err := l.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessFailed, err)
	}
	return nil
}

func buildEnv(o Options) []string {
	var env []string
	if o.Host != "" {
		env = append(env, "PGHOST="+o.Host)
	}
	if o.Port != 0 {
		env = append(env, "PGPORT="+strconv.Itoa(o.Port))
	}
	if o.User != "" {
		env = append(env, "PGUSER="+o.User)
	}
	if o.Password != "" {
		env = append(env, "PGPASSWORD="+o.Password)
	}
	if o.Database != "" {
		env = append(env, "PGDATABASE="+o.Database)
	}
	return env
}
