package confignode

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// rawDoc is an in-memory parameter mapping. YAML and JSON documents are
// interchangeable, per spec §6, so both are normalized into this shape
// before any structural field (tasks, uses, ...) is extracted.
type rawDoc map[string]interface{}

// readRawDoc reads a YAML or JSON file into a rawDoc, dispatching on
// extension the way the teacher reads either package.json or
// yarn.lock-flavoured YAML depending on what it finds on disk.
func readRawDoc(path string) (rawDoc, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return parseRawDoc(b, path)
}

func parseRawDoc(b []byte, path string) (rawDoc, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, errors.Wrapf(err, "parsing json config %s", path)
		}
		return rawDoc(m), nil
	default:
		// YAML (.yaml/.yml) and unrecognized extensions (in-memory
		// sources carry no extension) are parsed as YAML, which is a
		// superset of JSON.
		var raw interface{}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, errors.Wrapf(err, "parsing yaml config %s", path)
		}
		normalized, ok := normalizeYAML(raw).(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("config %s: top level must be a mapping", path)
		}
		return rawDoc(normalized), nil
	}
}

// normalizeYAML recursively converts the map[interface{}]interface{}
// that gopkg.in/yaml.v2 produces for mappings into map[string]interface{},
// so downstream code never has to special-case the two key types.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, vv := range val {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(vv)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, vv := range val {
			m[k] = normalizeYAML(vv)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = normalizeYAML(vv)
		}
		return out
	default:
		return v
	}
}

// stringList coerces a raw value declared as either a bare string or a
// list of strings into a []string, matching the grammar used by
// `tasks`, `uses`, and `excluded_tasks` (spec §6).
func stringList(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string list entry, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list of strings, got %T", v)
	}
}
