package parameter

import (
	"fmt"
	"reflect"
)

// FSPath is the declared type for filesystem-path parameters (spec
// §4.3: "for filesystem-path types: string → typed path"). Task code
// declares a ParamSpec.Type of reflect.TypeOf(FSPath("")) to opt in.
type FSPath string

var fsPathType = reflect.TypeOf(FSPath(""))

// coerce converts a raw config value to declaredType, constructing
// parameter objects via b.objects when the raw value has the {class,
// args, kwargs} shape (spec §4.3). A nil declaredType means "no
// declared type": the raw value passes through unchanged.
func (b *Binder) coerce(raw interface{}, declaredType reflect.Type) (interface{}, error) {
	if declaredType == nil {
		return raw, nil
	}

	if m, ok := raw.(map[string]interface{}); ok {
		if _, hasClass := m["class"]; hasClass {
			return b.constructParameterObject(m)
		}
	}

	if declaredType == fsPathType {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for filesystem path, got %T", raw)
		}
		return FSPath(s), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.IsValid() && rv.Type().AssignableTo(declaredType) {
		return raw, nil
	}
	if rv.IsValid() && rv.Type().ConvertibleTo(declaredType) {
		return rv.Convert(declaredType).Interface(), nil
	}
	return raw, nil
}
