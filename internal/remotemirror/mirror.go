package remotemirror

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/taskchain-go/taskchain/internal/datahandler"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// Mirror wraps a local taskdef.Handler with an optional remote pull on
// miss and push on save, the same priority-ordered consult-then-
// backfill shape as the teacher's cacheMultiplexer, narrowed to exactly
// two tiers (local filesystem, remote HTTP) instead of an arbitrary
// list.
type Mirror struct {
	local  taskdef.Handler
	client *Client
	logger hclog.Logger
}

// Wrap returns local unchanged when client is nil, so callers can leave
// remote mirroring entirely optional (spec §9: enrichment, never
// required).
func Wrap(local taskdef.Handler, client *Client) taskdef.Handler {
	if client == nil {
		return local
	}
	return &Mirror{local: local, client: client, logger: hclog.Default().Named("remotemirror")}
}

func (m *Mirror) Ext() string { return m.local.Ext() }

// UsesOutputPath forwards the wrapped handler's capability so the
// engine's checkpoint-style OutputPath wiring sees through the
// mirroring layer (datahandler.OutputPathUser).
func (m *Mirror) UsesOutputPath() bool {
	if u, ok := m.local.(datahandler.OutputPathUser); ok {
		return u.UsesOutputPath()
	}
	return false
}

func key(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Exists pulls from the remote store into path before delegating to the
// local handler, when the local copy is missing.
func (m *Mirror) Exists(path string) (bool, error) {
	exists, err := m.local.Exists(path)
	if err != nil || exists {
		return exists, err
	}
	if err := m.pullInto(path); err != nil {
		m.logger.Debug("remote pull miss or failed", "key", key(path), "error", err)
		return false, nil
	}
	return m.local.Exists(path)
}

func (m *Mirror) IsFinished(path string) (bool, error) {
	finished, err := m.local.IsFinished(path)
	if err != nil || finished {
		return finished, err
	}
	if err := m.pullInto(path); err != nil {
		return false, nil
	}
	return m.local.IsFinished(path)
}

func (m *Mirror) Load(path string) (interface{}, error) {
	if _, err := m.Exists(path); err != nil {
		return nil, err
	}
	return m.local.Load(path)
}

// Save persists locally first, then best-effort pushes to the remote
// store; a push failure is logged, not returned, since remote mirroring
// is enrichment and must never make a successful local computation
// fail (spec §9: "never a remote task-execution path").
func (m *Mirror) Save(path string, value interface{}) error {
	if err := m.local.Save(path, value); err != nil {
		return err
	}
	if err := m.pushFrom(path); err != nil {
		m.logger.Warn("remote push failed", "key", key(path), "error", err)
	}
	return nil
}

func (m *Mirror) MarkFinished(path string) error {
	return m.local.MarkFinished(path)
}

// pullInto downloads the remote artifact at path's key and writes it
// into path, unpacking a tar+gzip stream when path is a directory
// (Ext() == ""), matching the teacher's retrieve()/storeFile() split
// between file and directory artifacts.
func (m *Mirror) pullInto(path string) error {
	body, ok, err := m.client.Pull(key(path))
	if err != nil {
		return err
	}
	if !ok {
		return os.ErrNotExist
	}
	defer body.Close()

	if m.local.Ext() == "" {
		return untarInto(path, body)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := ioutil.ReadAll(body)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0o644)
}

// pushFrom uploads the artifact at path, tar+gzipping it first when it
// is a directory.
func (m *Mirror) pushFrom(path string) error {
	if m.local.Ext() == "" {
		var buf bytes.Buffer
		if err := tarDirectory(&buf, path); err != nil {
			return err
		}
		return m.client.Push(key(path), &buf)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.client.Push(key(path), f)
}

func tarDirectory(w io.Writer, dir string) error {
	gzw := gzip.NewWriter(w)
	defer gzw.Close()
	tw := tar.NewWriter(gzw)
	defer tw.Close()

	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

func untarInto(dir string, r io.Reader) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzr.Close()
	tr := tar.NewReader(gzr)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}
