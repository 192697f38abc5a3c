package datahandler

import (
	"reflect"

	"github.com/taskchain-go/taskchain/internal/taskdef"
)

var (
	dirHandleType = reflect.TypeOf(DirHandle{})
	streamType    = reflect.TypeOf((*Stream)(nil)).Elem()
	byteSliceType = reflect.TypeOf([]byte(nil))
)

// Select chooses a Handler for class's declared return type, or honors
// class.DataClass when set (spec §4.6: "chosen by inspecting the
// declared return type, or the explicit data_class override").
func Select(class *taskdef.TaskClass) taskdef.Handler {
	switch class.DataClass {
	case "in_memory":
		return InMemory{}
	case "continuable":
		return Continuable{}
	case "streamed":
		return Streamed{}
	case "directory":
		return Directory{}
	case "json":
		return JSONArtifact{}
	}

	t := class.ReturnType
	if t == nil {
		return InMemory{}
	}
	switch {
	case t == dirHandleType:
		return Directory{}
	case t.Implements(streamType):
		return Streamed{}
	case t == byteSliceType:
		return OpaqueArtifact{Extension: ".bin"}
	case isJSONCompatible(t):
		return JSONArtifact{}
	default:
		return InMemory{}
	}
}

// isJSONCompatible reports whether t's kind is one encoding/json
// handles: bools, numbers, strings, maps, slices, arrays, structs and
// interfaces. Only the top-level kind is checked; element and field
// types are not inspected.
func isJSONCompatible(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Interface:
		return true
	default:
		return false
	}
}
