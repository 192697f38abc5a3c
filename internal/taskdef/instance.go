package taskdef

import "github.com/taskchain-go/taskchain/internal/confignode"

// Handler is a persistence strategy for a task's return value (spec
// §4.6). Concrete variants live in internal/datahandler; this interface
// is declared here, not there, so TaskInstance can hold one without a
// package cycle.
type Handler interface {
	Exists(path string) (bool, error)
	Load(path string) (interface{}, error)
	Save(path string, value interface{}) error
	IsFinished(path string) (bool, error)
	MarkFinished(path string) error

	// Ext returns the file extension (including the leading dot) this
	// handler persists under, or "" for directory-backed variants.
	Ext() string
}

// TaskInstance is one (TaskClass, owning ConfigNode) pair within a
// chain (spec §3). Fields are populated in stages by the resolver,
// binder, linker and fingerprint engine; once the chain is built the
// struct is treated as immutable except for the engine's in-memory
// value cache and force marks.
type TaskInstance struct {
	Class  *TaskClass
	Config *confignode.ConfigNode

	Namespace string
	FullName  string

	// Params holds every bound parameter value, keyed by ParamSpec.Name
	// (post type-coercion).
	Params map[string]interface{}

	// Inputs holds resolved input-task links, keyed by InputSpec.FieldName.
	// A non-regex input maps to *TaskInstance; a regex input maps to
	// []*TaskInstance.
	Inputs map[string]interface{}

	Handler Handler

	fingerprint       string
	fingerprintCached bool

	cachedValue    interface{}
	hasCachedValue bool

	forced          bool
	forceDeleteData bool
}

// Fingerprint returns the memoized fingerprint, computing it via compute
// on first use.
func (t *TaskInstance) Fingerprint(compute func() (string, error)) (string, error) {
	if t.fingerprintCached {
		return t.fingerprint, nil
	}
	fp, err := compute()
	if err != nil {
		return "", err
	}
	t.fingerprint = fp
	t.fingerprintCached = true
	return fp, nil
}

func (t *TaskInstance) InvalidateFingerprint() {
	t.fingerprintCached = false
}

func (t *TaskInstance) CachedValue() (interface{}, bool) {
	return t.cachedValue, t.hasCachedValue
}

func (t *TaskInstance) SetCachedValue(v interface{}) {
	t.cachedValue = v
	t.hasCachedValue = true
}

func (t *TaskInstance) ClearCachedValue() {
	t.cachedValue = nil
	t.hasCachedValue = false
}

// Force marks t for recomputation (spec §4.7). The mark is chain-local
// and is never itself persisted.
func (t *TaskInstance) Force(deleteData bool) {
	t.forced = true
	t.forceDeleteData = t.forceDeleteData || deleteData
	t.ClearCachedValue()
}

func (t *TaskInstance) IsForced() bool       { return t.forced }
func (t *TaskInstance) ForceDeletesData() bool { return t.forceDeleteData }

func (t *TaskInstance) ClearForce() {
	t.forced = false
	t.forceDeleteData = false
}

// ParamSpecByName looks up the TaskClass parameter declaration matching
// name.
func (t *TaskInstance) ParamSpecByName(name string) (ParamSpec, bool) {
	for _, p := range t.Class.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}
