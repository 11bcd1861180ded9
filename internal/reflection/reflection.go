// Package reflection provides internal helpers for deriving stable names
// from runtime values, used to build low-cardinality telemetry tags.
package reflection

import (
	"path"
	"reflect"
)

// TypeName returns the short package-qualified name of v's dynamic type,
// for example "url.Error" or "errors.errorString". Pointer types are
// dereferenced so *T and T share one name. Nil values and unnamed types
// yield "".
func TypeName(v any) string {
	if v == nil {
		return ""
	}

	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return ""
	}

	if pkg := t.PkgPath(); pkg != "" {
		return path.Base(pkg) + "." + t.Name()
	}
	return t.Name()
}
