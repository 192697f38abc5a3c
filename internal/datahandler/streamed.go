package datahandler

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Stream is what a streamed task's run-method returns: a lazy sequence
// the handler drains into JSON-lines without materializing it in
// memory (spec §4.6's streamed variant).
type Stream interface {
	// Next returns the next item, or ok=false when exhausted.
	Next() (item interface{}, ok bool, err error)
}

// SliceStream adapts an in-memory slice to Stream, for tasks that
// already hold the full sequence.
type SliceStream struct {
	items []interface{}
	pos   int
}

func NewSliceStream(items []interface{}) *SliceStream {
	return &SliceStream{items: items}
}

func (s *SliceStream) Next() (interface{}, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

// Streamed persists a Stream as JSON-lines; Load returns a lazily
// reading Stream rather than the whole file (spec §4.6: "readers
// iterate lazily on reload").
type Streamed struct{}

func (Streamed) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (Streamed) Save(path string, value interface{}) error {
	stream, ok := value.(Stream)
	if !ok {
		return &typeError{path: path}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	enc := json.NewEncoder(w)
	for {
		item, ok, err := stream.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
}

func (Streamed) Load(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileStream{f: f, dec: json.NewDecoder(bufio.NewReader(f))}, nil
}

// fileStream lazily decodes one JSON value per line as Next is called,
// closing the underlying file once exhausted.
type fileStream struct {
	f   *os.File
	dec *json.Decoder
}

func (s *fileStream) Next() (interface{}, bool, error) {
	var v interface{}
	if err := s.dec.Decode(&v); err != nil {
		s.f.Close()
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (Streamed) IsFinished(path string) (bool, error) {
	_, err := os.Stat(path + finishedSentinel)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (Streamed) MarkFinished(path string) error {
	f, err := os.Create(path + finishedSentinel)
	if err != nil {
		return err
	}
	return f.Close()
}

func (Streamed) Ext() string { return ".jsonl" }

func (Streamed) UsesOutputPath() bool { return true }
