// Package inspect renders arbitrary Go values as deterministic path=value
// lines using reflection. The checker uses it to show structured context
// (findings, parsed examples) in diagnostics without hand-written dumpers.
package inspect

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// maxDepth bounds recursion so cyclic values terminate.
const maxDepth = 12

// Sprint renders v as one path=value line per leaf, rooted at name.
func Sprint(name string, v any) string {
	var b strings.Builder
	display(&b, name, reflect.ValueOf(v), 0)
	return b.String()
}

func display(b *strings.Builder, path string, v reflect.Value, depth int) {
	if depth > maxDepth {
		fmt.Fprintf(b, "%s = ... (max depth)\n", path)
		return
	}

	switch v.Kind() {
	case reflect.Invalid:
		fmt.Fprintf(b, "%s = invalid\n", path)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			fmt.Fprintf(b, "%s = []\n", path)
			return
		}
		for i := 0; i < v.Len(); i++ {
			display(b, fmt.Sprintf("%s[%d]", path, i), v.Index(i), depth+1)
		}

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			display(b, fmt.Sprintf("%s.%s", path, t.Field(i).Name), v.Field(i), depth+1)
		}

	case reflect.Map:
		if v.Len() == 0 {
			fmt.Fprintf(b, "%s = map[]\n", path)
			return
		}
		// Sort keys by their formatted form for deterministic output
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return formatAtom(keys[i]) < formatAtom(keys[j])
		})
		for _, key := range keys {
			display(b, fmt.Sprintf("%s[%s]", path, formatAtom(key)), v.MapIndex(key), depth+1)
		}

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			fmt.Fprintf(b, "%s = nil\n", path)
			return
		}
		display(b, path, v.Elem(), depth+1)

	default:
		fmt.Fprintf(b, "%s = %s\n", path, formatAtom(v))
	}
}

// formatAtom formats a value without inspecting its internal structure.
func formatAtom(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Invalid:
		return "invalid"
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Chan, reflect.Func, reflect.Pointer, reflect.Slice, reflect.Map:
		return v.Type().String() + " value"
	default:
		return v.Type().String() + " value"
	}
}

// DiffLines compares expected and actual text line by line and returns a
// unified-style summary of the first divergences, or "" when equal.
// Trailing newlines are insignificant.
func DiffLines(want, got string) string {
	want = strings.TrimRight(want, "\n")
	got = strings.TrimRight(got, "\n")
	if want == got {
		return ""
	}

	wantLines := strings.Split(want, "\n")
	gotLines := strings.Split(got, "\n")

	var b strings.Builder
	max := len(wantLines)
	if len(gotLines) > max {
		max = len(gotLines)
	}

	const maxShown = 5
	shown := 0
	for i := 0; i < max && shown < maxShown; i++ {
		var w, g string
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if w == g {
			continue
		}
		fmt.Fprintf(&b, "line %d:\n  - %s\n  + %s\n", i+1, w, g)
		shown++
	}
	if shown == maxShown {
		b.WriteString("  ... further differences elided\n")
	}
	return b.String()
}
