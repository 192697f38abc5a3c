package parameter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/reflectwalk"

	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// ObjectConstructor builds a parameter object from positional args and
// keyword args declared in config (spec §4.3's `{class, args, kwargs}`
// form).
type ObjectConstructor func(args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// ObjectRegistry maps a dotted class path to its constructor, the
// parameter-object analogue of taskresolve.Registry.
type ObjectRegistry struct {
	constructors map[string]ObjectConstructor
}

func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{constructors: map[string]ObjectConstructor{}}
}

func (r *ObjectRegistry) Register(dottedPath string, ctor ObjectConstructor) {
	if _, exists := r.constructors[dottedPath]; exists {
		panic(fmt.Sprintf("parameter: duplicate parameter object registration for %q", dottedPath))
	}
	r.constructors[dottedPath] = ctor
}

func (b *Binder) constructParameterObject(m map[string]interface{}) (interface{}, error) {
	classPath, _ := m["class"].(string)
	if classPath == "" {
		return nil, fmt.Errorf("parameter object missing \"class\"")
	}
	ctor, ok := b.objects.constructors[classPath]
	if !ok {
		return nil, fmt.Errorf("unknown parameter object class %q", classPath)
	}

	var args []interface{}
	if rawArgs, ok := m["args"].([]interface{}); ok {
		args = rawArgs
	}
	kwargs := map[string]interface{}{}
	if rawKwargs, ok := m["kwargs"].(map[string]interface{}); ok {
		kwargs = rawKwargs
	}

	return ctor(args, kwargs)
}

// CanonicalRepr produces the stable string identity the Fingerprint
// Engine folds into a TaskInstance's digest for a parameter value (spec
// §4.5's canonical-repr, specialized for §4.3's parameter objects).
//
// Plain values (strings, numbers, bools, FSPath) use their natural
// textual form. Sequences and mappings recurse with sorted keys. A
// value implementing fmt.Stringer is assumed to already provide a
// stable identity and is used as-is (the AutoParameterObject path
// below is how most parameter object types get there without writing
// String() by hand).
//
// A top-level FSPath parameter's textual form is its literal path, not
// its content: fingerprint.Engine substitutes a content hash (HashPath)
// for that case before ever calling this function, since folding
// directory-walking machinery in here would pull this package back
// into an import cycle with fingerprint.
func CanonicalRepr(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return val, nil
	case FSPath:
		return string(val), nil
	case fmt.Stringer:
		return val.String(), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			repr, err := CanonicalRepr(val[k])
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%s:%s", k, repr)
		}
		sb.WriteByte('}')
		return sb.String(), nil
	case []interface{}:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			repr, err := CanonicalRepr(item)
			if err != nil {
				return "", err
			}
			sb.WriteString(repr)
		}
		sb.WriteByte(']')
		return sb.String(), nil
	default:
		if auto, ok := v.(taskdef.AutoParameterObject); ok {
			return autoCanonicalRepr(v, auto)
		}
		return fmt.Sprintf("%v", v), nil
	}
}

// autoCanonicalRepr implements the AutoParameterObject convention (spec
// §4.3): the class name plus every exported field value (or its
// underscore-prefixed equivalent), skipping IgnorePersistenceArgs and
// zero-valued DontPersistDefaultValueArgs fields, in declared field
// order. reflectwalk drives the per-field traversal so nested
// slices/maps inside a single field get the same recursive,
// sorted-key treatment as top-level sequences and mappings.
func autoCanonicalRepr(v interface{}, auto taskdef.AutoParameterObject) (string, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("AutoParameterObject %T is not a struct", v)
	}

	ignore := toSet(auto.IgnorePersistenceArgs())
	dontPersistDefault := toSet(auto.DontPersistDefaultValueArgs())

	rt := rv.Type()
	var sb strings.Builder
	sb.WriteString(rt.Name())
	sb.WriteByte('(')
	first := true
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		argName := strings.TrimPrefix(field.Name, "_")
		if ignore[argName] {
			continue
		}
		fv := rv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		if dontPersistDefault[argName] && fv.IsZero() {
			continue
		}

		w := &fieldWalker{}
		if err := reflectwalk.Walk(fv.Interface(), w); err != nil {
			return "", fmt.Errorf("field %s: %w", argName, err)
		}
		repr, err := CanonicalRepr(w.value())
		if err != nil {
			return "", err
		}

		if !first {
			sb.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&sb, "%s=%s", argName, repr)
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// fieldWalker flattens one struct field's value back into plain
// Go maps/slices/scalars via reflectwalk, so CanonicalRepr's existing
// recursive cases handle it uniformly.
type fieldWalker struct {
	result interface{}
	set    bool
}

func (w *fieldWalker) value() interface{} {
	if w.set {
		return w.result
	}
	return nil
}

func (w *fieldWalker) Primitive(v reflect.Value) error {
	if !w.set {
		w.result = v.Interface()
		w.set = true
	}
	return nil
}

func (w *fieldWalker) Map(v reflect.Value) error {
	m := map[string]interface{}{}
	for _, key := range v.MapKeys() {
		m[fmt.Sprintf("%v", key.Interface())] = v.MapIndex(key).Interface()
	}
	w.result = m
	w.set = true
	return reflectwalk.SkipEntry
}

func (w *fieldWalker) Slice(v reflect.Value) error {
	s := make([]interface{}, v.Len())
	for i := range s {
		s[i] = v.Index(i).Interface()
	}
	w.result = s
	w.set = true
	return reflectwalk.SkipEntry
}
