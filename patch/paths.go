package patch

import (
	"reflect"
	"strings"
)

// PointerPaths lists the JSON pointers reachable in T, using "-" for slice
// elements and "*" for map values. Names in skip (top-level json names) are
// left out together with everything below them.
func PointerPaths[T any](skip ...string) []string {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return []string{}
	}
	w := &pathWalker{seen: map[reflect.Type]bool{}}
	w.walk(typ, "")

	out := w.paths[:0]
	for _, p := range w.paths {
		if !skipped(p, skip) {
			out = append(out, p)
		}
	}
	return out
}

type pathWalker struct {
	paths []string
	seen  map[reflect.Type]bool
}

func (w *pathWalker) walk(typ reflect.Type, prefix string) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ.Kind() {
	case reflect.Struct:
		// Recursive types stop at the first repeat on the current branch.
		if w.seen[typ] {
			return
		}
		w.seen[typ] = true
		defer delete(w.seen, typ)
		for _, field := range reflect.VisibleFields(typ) {
			if !field.IsExported() || field.Anonymous {
				continue
			}
			name := jsonName(field)
			if name == "-" {
				continue
			}
			w.add(field.Type, prefix+"/"+name)
		}
	case reflect.Slice, reflect.Array:
		if typ.Elem().Kind() == reflect.Uint8 {
			return
		}
		w.add(typ.Elem(), prefix+"/-")
	case reflect.Map:
		w.add(typ.Elem(), prefix+"/*")
	}
}

// add records path and descends when the value holds structs.
func (w *pathWalker) add(typ reflect.Type, path string) {
	w.paths = append(w.paths, path)
	w.walk(typ, path)
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

func skipped(path string, skip []string) bool {
	for _, s := range skip {
		prefix := "/" + s
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
