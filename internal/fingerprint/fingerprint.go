package fingerprint

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// Engine computes and memoizes TaskInstance fingerprints (spec §4.5).
// Memoization lives on the TaskInstance itself (taskdef.TaskInstance.
// Fingerprint); Engine only supplies the compute function, recursing
// into input instances as needed.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Of returns inst's fingerprint, computing and caching it (and,
// transitively, every input's fingerprint) on first use.
func (e *Engine) Of(inst *taskdef.TaskInstance) (Digest, error) {
	fp, err := inst.Fingerprint(func() (string, error) {
		d, err := e.compute(inst)
		return string(d), err
	})
	return Digest(fp), err
}

func (e *Engine) compute(inst *taskdef.TaskInstance) (Digest, error) {
	var parts []string
	parts = append(parts, "class:"+inst.Class.DottedPath)

	for _, spec := range inst.Class.Params {
		if spec.IgnorePersistence {
			continue
		}
		value := inst.Params[spec.Name]
		if spec.DontPersistDefaultValue && spec.HasDefault && reflect.DeepEqual(value, spec.Default) {
			continue
		}
		repr, err := canonicalRepr(value)
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", spec.Name, err)
		}
		parts = append(parts, fmt.Sprintf("param:%s=%s", spec.Name, repr))
	}

	for _, spec := range inst.Class.Inputs {
		linked := inst.Inputs[spec.FieldName]
		switch v := linked.(type) {
		case *taskdef.TaskInstance:
			fp, err := e.Of(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("input:%s=%s", spec.FieldName, fp))
		case []*taskdef.TaskInstance:
			var sub []string
			for _, m := range v {
				fp, err := e.Of(m)
				if err != nil {
					return "", err
				}
				sub = append(sub, string(fp))
			}
			parts = append(parts, fmt.Sprintf("input:%s=[%s]", spec.FieldName, strings.Join(sub, ",")))
		default:
			return "", fmt.Errorf("input %q not linked", spec.FieldName)
		}
	}

	return hashObject(strings.Join(parts, "\n")), nil
}

// canonicalRepr is parameter.CanonicalRepr, except filesystem-path
// parameters hash their content (HashPath) rather than their literal
// string value, so a file changing at a fixed path changes the
// fingerprint. This lives here rather than as a parameter.FSPath case
// inside CanonicalRepr itself because HashPath's directory-walking
// machinery belongs to this package, and parameter already has no
// dependency back on fingerprint.
func canonicalRepr(value interface{}) (string, error) {
	if p, ok := value.(parameter.FSPath); ok {
		d, err := HashPath(string(p))
		if err != nil {
			return "", err
		}
		return string(d), nil
	}
	return parameter.CanonicalRepr(value)
}
