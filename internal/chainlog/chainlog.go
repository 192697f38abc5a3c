// Package chainlog provides the per-TaskInstance named logger and .log
// sidecar file a task's execution writes to (spec §4.6, §9), grounded
// on the teacher's internal/run/run.go log-file handling: ensure the
// parent directory, create the file, buffer writes through it, and
// replay it verbatim when a later invocation serves the task from
// cache instead of re-running it.
package chainlog

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Sink is the open .log sidecar a running task's logger writes
// through, mirroring the buffered os.Create(logFileName) +
// bufio.Writer pair the teacher builds in run.go before invoking a
// target.
type Sink struct {
	f *os.File
	w *bufio.Writer
}

// Open creates path's parent directory if missing and truncates path
// to a fresh sidecar file, following the teacher's
// fs.EnsureDir(logFileName) before os.Create(logFileName).
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *Sink) Write(p []byte) (int, error) { return s.w.Write(p) }

// Close flushes the buffered writer before closing the file.
func (s *Sink) Close() error {
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// NewLogger builds a named logger whose output fans out to both sink
// and stderr, the same io.MultiWriter(os.Stdout, bufWriter) split the
// teacher uses so a task's log is visible live and persisted at once.
func NewLogger(name string, level hclog.Level, sink io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  level,
		Output: io.MultiWriter(os.Stderr, sink),
	})
}

// Replay streams path's contents to dst a line at a time, the same
// bufio.Scanner loop the teacher's replayLogs uses to surface a prior
// run's output when a target is served from cache rather than rerun.
// A missing path is not an error: a task may finish without ever
// having written to its sidecar.
func Replay(path string, dst io.Writer) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := append(scanner.Bytes(), '\n')
		if _, err := dst.Write(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
