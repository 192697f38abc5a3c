package datahandler

import (
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
	"github.com/karrick/godirwalk"
)

// DirHandle is the value a directory-backed task's run-method returns:
// a handle wrapping the directory the task already populated (spec
// §4.6: "the task populates files inside; the value returned to
// callers is the directory path wrapped in a handle").
type DirHandle struct {
	Path string
}

// Files enumerates every file under the handle, following the
// teacher's cache_fs.go use of doublestar.Glob for output collection.
func (h DirHandle) Files() ([]string, error) {
	return doublestar.Glob(filepath.Join(h.Path, "**", "*"))
}

// OutputPathUser is implemented by handlers whose tasks write directly
// to RunContext.OutputPath instead of returning an in-memory value
// (spec §4.6's directory-backed, continuable, and streamed variants).
// Checking this interface rather than a concrete type switch lets a
// wrapping handler such as remotemirror.Mirror forward the capability
// of whatever it wraps.
type OutputPathUser interface {
	UsesOutputPath() bool
}

// Directory is the directory-backed handler (spec §4.6): a directory
// keyed by the fingerprint, populated by the task itself.
type Directory struct{}

func (Directory) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (Directory) Load(path string) (interface{}, error) {
	return DirHandle{Path: path}, nil
}

func (Directory) Save(path string, value interface{}) error {
	handle, ok := value.(DirHandle)
	if !ok {
		return &typeError{path: path}
	}
	if handle.Path == path {
		return nil
	}
	if err := os.Rename(handle.Path, path); err == nil {
		return nil
	}
	// Rename fails when the task's scratch directory and the artifact
	// root sit on different filesystems; fall back to a recursive copy,
	// following the shape of the teacher's internal/fs RecursiveCopy.
	if err := recursiveCopyDir(handle.Path, path); err != nil {
		return err
	}
	return os.RemoveAll(handle.Path)
}

// recursiveCopyDir walks from with godirwalk, mkdir-ing directories and
// copying files into the equivalent path under to.
func recursiveCopyDir(from, to string) error {
	return godirwalk.Walk(from, &godirwalk.Options{
		Callback: func(name string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(from, name)
			if err != nil {
				return err
			}
			dest := filepath.Join(to, rel)
			if de.IsDir() {
				return os.MkdirAll(dest, 0o755)
			}
			return copyFile(name, dest)
		},
		Unsorted: true,
	})
}

func copyFile(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (d Directory) IsFinished(path string) (bool, error) { return d.Exists(path) }
func (Directory) MarkFinished(path string) error         { return nil }
func (Directory) Ext() string                            { return "" }
func (Directory) UsesOutputPath() bool                   { return true }

// finishedSentinel is the completion marker continuable handlers write
// on success, per spec §4.6's "explicit completion sentinel".
const finishedSentinel = ".finished"

// Continuable is a directory-backed handler with an explicit completion
// sentinel: a task may run to partial completion and resume on the next
// invocation by reading existing checkpoints in the directory (spec
// §4.6, §5 "Cancellation").
type Continuable struct {
	Directory
}

func (Continuable) IsFinished(path string) (bool, error) {
	_, err := os.Stat(filepath.Join(path, finishedSentinel))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (Continuable) MarkFinished(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(path, finishedSentinel))
	if err != nil {
		return err
	}
	return f.Close()
}
