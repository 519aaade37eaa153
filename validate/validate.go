// Package validate provides runtime value-shape checks for configuration
// inputs before they reach the engines.
package validate

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/use-agent/fetchkit/models"
)

// Kind is the coarse runtime shape of a configuration value.
type Kind int

const (
	// Nil marks "absence allowed": a nil value passes when Nil is listed.
	Nil Kind = iota
	Bool
	Int
	Float
	String
	Map
	Slice
	Func
	Struct
	Other
)

var kindNames = map[Kind]string{
	Nil:    "nil",
	Bool:   "bool",
	Int:    "int",
	Float:  "float",
	String: "string",
	Map:    "map",
	Slice:  "slice",
	Func:   "func",
	Struct: "struct",
	Other:  "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "other"
}

// KindOf reports the Kind of an arbitrary value.
func KindOf(value any) Kind {
	if value == nil {
		return Nil
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return Nil
		}
		return KindOf(v.Elem().Interface())
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.String:
		return String
	case reflect.Map:
		return Map
	case reflect.Slice, reflect.Array:
		return Slice
	case reflect.Func:
		return Func
	case reflect.Struct:
		return Struct
	default:
		return Other
	}
}

// Check validates that value matches one of the allowed kinds.
//
// A nil value passes only when Nil is among the allowed kinds. An empty
// allowed list accepts any non-nil value unchanged. On failure the result
// depends on critical: when true a models.ConfigError naming the field is
// returned; otherwise the failure is logged at warning level and def is
// substituted so the call can keep making progress.
//
// name identifies the field in error messages and must be supplied by the
// caller; there is no automatic discovery.
func Check(value any, allowed []Kind, def any, critical bool, name string) (any, error) {
	if name == "" {
		name = "unknown"
	}

	if KindOf(value) == Nil {
		for _, k := range allowed {
			if k == Nil {
				return value, nil
			}
		}
		return reject(def, critical, name, "cannot be nil")
	}

	if len(allowed) == 0 {
		return value, nil
	}

	got := KindOf(value)
	for _, k := range allowed {
		if k == got {
			return value, nil
		}
	}

	names := make([]string, 0, len(allowed))
	for _, k := range allowed {
		names = append(names, k.String())
	}
	return reject(def, critical, name, "must be of type "+strings.Join(names, " or "))
}

func reject(def any, critical bool, name, message string) (any, error) {
	if critical {
		return def, models.NewConfigError(name, message)
	}
	slog.Warn("[Ignored] invalid argument", "argument", name, "reason", message)
	return def, nil
}
