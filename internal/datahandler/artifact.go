package datahandler

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
)

// JSONArtifact persists JSON-compatible scalars, mappings, and
// sequences to a single file keyed by the caller-supplied path (spec
// §4.6's single-artifact variant, `.json` extension).
type JSONArtifact struct{}

func (JSONArtifact) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (JSONArtifact) Load(path string) (interface{}, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (JSONArtifact) Save(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0o644)
}

// JSONArtifact treats "exists" and "finished" as the same thing: a
// single-artifact write is atomic from the caller's point of view (spec
// §4.6 declares is_finished/mark_finished only for the continuable and
// streamed variants; other handlers answer is_finished from exists).
func (h JSONArtifact) IsFinished(path string) (bool, error) { return h.Exists(path) }

func (JSONArtifact) MarkFinished(path string) error { return nil }

func (JSONArtifact) Ext() string { return ".json" }

// OpaqueArtifact persists an already-encoded byte blob verbatim, for
// return types whose codec lives outside the core (tabular frames,
// numeric arrays, figures — spec §1's "out of scope" domain codecs).
// The caller encodes/decodes; this handler only moves bytes, under
// whatever extension the caller's codec declares.
type OpaqueArtifact struct {
	Extension string
}

func (o OpaqueArtifact) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (o OpaqueArtifact) Load(path string) (interface{}, error) {
	return ioutil.ReadFile(path)
}

func (o OpaqueArtifact) Save(path string, value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errNotBytes(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0o644)
}

func (o OpaqueArtifact) IsFinished(path string) (bool, error) { return o.Exists(path) }
func (o OpaqueArtifact) MarkFinished(path string) error       { return nil }
func (o OpaqueArtifact) Ext() string                          { return o.Extension }

func errNotBytes(path string) error {
	return &typeError{path: path}
}

type typeError struct{ path string }

func (e *typeError) Error() string {
	return "datahandler: value for " + e.path + " must be []byte for an opaque artifact"
}
