package promptengine

import (
	"reflect"
	"strings"
)

// scope resolves dotted-path variable references against a base variable
// map plus a stack of "this" values pushed by enclosing {{#each}} blocks.
// A loop item that is itself a map shadows the base map for any key it
// defines; "this" always refers to the innermost loop item.
type scope struct {
	base  map[string]any
	stack []any
}

func newScope(vars map[string]any) *scope {
	return &scope{base: vars}
}

// push returns a child scope for one iteration of an {{#each}} block.
func (s *scope) push(item any) *scope {
	stack := make([]any, len(s.stack)+1)
	copy(stack, s.stack)
	stack[len(stack)-1] = item
	return &scope{base: s.base, stack: stack}
}

// resolve looks up a dotted path. The first segment is resolved against
// the innermost loop item (if it is "this", or if the item is a map
// containing that key), falling back to the base variable map. In the base
// map the longest leading run of segments that is itself a key (e.g. the
// literal "first.output" written by the driver) wins; remaining segments
// navigate nested maps/structs.
func (s *scope) resolve(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	head := path[0]
	var root any
	found := false

	if head == "this" && len(s.stack) > 0 {
		root = s.stack[len(s.stack)-1]
		found = true
		path = path[1:]
	} else if len(s.stack) > 0 {
		if m, ok := asMap(s.stack[len(s.stack)-1]); ok {
			if v, ok := m[head]; ok {
				root = v
				found = true
				path = path[1:]
			}
		}
	}

	if !found {
		for i := len(path); i >= 1; i-- {
			if v, ok := s.base[strings.Join(path[:i], ".")]; ok {
				root = v
				found = true
				path = path[i:]
				break
			}
		}
	}

	if !found {
		return nil, false
	}

	cur := root
	for _, seg := range path {
		next, ok := navigate(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// navigate descends one attribute level into a map (string keys) or
// struct (exported field names, case-sensitive).
func navigate(v any, key string) (any, bool) {
	if m, ok := asMap(v); ok {
		val, ok := m[key]
		return val, ok
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	f := rv.FieldByName(key)
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	return f.Interface(), true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// toSlice converts a value into a []any for {{#each}} iteration.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// truthy decides whether a resolved value satisfies {{#if}}.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}
