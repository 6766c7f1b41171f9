package policy

import (
	"reflect"
	"strings"
)

// lookup walks a dotted path through nested maps.
func lookup(root map[string]any, path string) (any, bool) {
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// contextToMap exposes the json tagged fields of the request context by tag name.
func contextToMap(ctx RequestContext) map[string]any {
	result := make(map[string]any)
	v := reflect.ValueOf(ctx)
	t := v.Type()
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		result[name] = v.Field(i).Interface()
	}
	return result
}
