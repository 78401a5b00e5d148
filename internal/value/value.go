// Package value implements Allay's template data model: a small
// immutable sum type shared by front matter, scopes, and interpreter
// results.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable, copy-on-write template value. The zero Value is
// null. Lists and objects are shared by reference; any mutation clones
// the underlying container first, so callers never observe a Value
// changing out from under them.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	list []Value
	obj  map[string]Value
}

func Null() Value              { return Value{kind: KindNull} }
func String(s string) Value    { return Value{kind: KindString, str: s} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }

// List builds a list Value from a snapshot of items; the caller's slice
// is copied so later mutation of it does not alias the Value.
func List(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Object builds an object Value from a snapshot of a map.
func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// FromAny converts a generic decoded document (as produced by
// yaml.v3's or BurntSushi/toml's into-`any` unmarshal modes) into a
// Value tree. Callers are front-matter decoding, the compiler facade's
// page listing (JSON-decoded sitemap metadata) and the generator's site
// config value; inside the interpreter, Values are already Values.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return List(items)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = FromAny(e)
		}
		return Object(fields)
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[fmt.Sprint(k)] = FromAny(e)
		}
		return Object(fields)
	default:
		return String(fmt.Sprint(t))
	}
}

// ToAny is FromAny's inverse: it unwraps a Value into plain Go data
// (string/int64/float64/bool/[]any/map[string]any/nil) suitable for
// encoding/json or other generic serializers.
func ToAny(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = ToAny(e)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = ToAny(e)
		}
		return out
	default:
		return nil
	}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) IsObject() bool { return v.kind == KindObject }

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("value: expected string, got %s", v.kind)
	}
	return v.str, nil
}

func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("value: expected int, got %s", v.kind)
	}
	return v.i, nil
}

// AsFloat coerces int to float, per spec.md §3: cross-kind comparison is
// an error except int<->float which coerce.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, fmt.Errorf("value: expected float, got %s", v.kind)
	}
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("value: expected bool, got %s", v.kind)
	}
	return v.b, nil
}

func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, fmt.Errorf("value: expected list, got %s", v.kind)
	}
	return v.list, nil
}

func (v Value) AsObject() (map[string]Value, error) {
	if v.kind != KindObject {
		return nil, fmt.Errorf("value: expected object, got %s", v.kind)
	}
	return v.obj, nil
}

// Get looks a key up in an object Value, returning Null if the key is
// absent or v is not an object.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Null()
	}
	if val, ok := v.obj[key]; ok {
		return val
	}
	return Null()
}

// Index looks an element up in a list Value.
func (v Value) Index(i int) (Value, error) {
	if v.kind != KindList {
		return Null(), fmt.Errorf("value: expected list, got %s", v.kind)
	}
	if i < 0 || i >= len(v.list) {
		return Null(), fmt.Errorf("value: index %d out of bounds (len %d)", i, len(v.list))
	}
	return v.list[i], nil
}

// Len returns the number of elements in a list or object, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// With returns a copy-on-write object with key set to val. The receiver
// is left untouched.
func (v Value) With(key string, val Value) Value {
	fields := make(map[string]Value, len(v.obj)+1)
	for k, f := range v.obj {
		fields[k] = f
	}
	fields[key] = val
	return Value{kind: KindObject, obj: fields}
}

// Merge returns an object combining base and override, with override's
// keys taking precedence — used for PageScope's owned/inherited merge.
func Merge(base, override Value) Value {
	fields := make(map[string]Value, base.Len()+override.Len())
	for k, f := range base.obj {
		fields[k] = f
	}
	for k, f := range override.obj {
		fields[k] = f
	}
	return Value{kind: KindObject, obj: fields}
}

// String renders a Value the way a substitution ({: expr :}) stringifies
// it: plain text for scalars, comma-joined for lists, and json-ish for
// objects (objects are not expected inside text output in practice).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// Equal implements the equality half of total ordering (§3): equal kinds
// compare structurally, int<->float coerce, everything else is unequal
// (never an error — equality is total, only ordering can fail).
func Equal(a, b Value) bool {
	if a.kind == b.kind && (a.kind == KindList || a.kind == KindObject) {
		if len(a.list) != len(b.list) || len(a.obj) != len(b.obj) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		for k, av := range a.obj {
			if bv, ok := b.obj[k]; !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// Compare implements Value's total ordering for equal kinds, with
// int<->float coercion; any other cross-kind comparison is an error.
func Compare(a, b Value) (int, error) {
	if a.kind != b.kind {
		if (a.kind == KindInt || a.kind == KindFloat) && (b.kind == KindInt || b.kind == KindFloat) {
			af, _ := a.AsFloat()
			bf, _ := b.AsFloat()
			return compareFloat(af, bf), nil
		}
		return 0, fmt.Errorf("value: cannot compare %s with %s", a.kind, b.kind)
	}

	switch a.kind {
	case KindNull:
		return 0, nil
	case KindString:
		return strings.Compare(a.str, b.str), nil
	case KindInt:
		switch {
		case a.i < b.i:
			return -1, nil
		case a.i > b.i:
			return 1, nil
		default:
			return 0, nil
		}
	case KindFloat:
		return compareFloat(a.f, b.f), nil
	case KindBool:
		if a.b == b.b {
			return 0, nil
		}
		if !a.b && b.b {
			return -1, nil
		}
		return 1, nil
	case KindList:
		n := len(a.list)
		if len(b.list) < n {
			n = len(b.list)
		}
		for i := 0; i < n; i++ {
			c, err := Compare(a.list[i], b.list[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return len(a.list) - len(b.list), nil
	default:
		return 0, fmt.Errorf("value: %s is not orderable", a.kind)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
