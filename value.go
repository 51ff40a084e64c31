package packjson

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"golang.org/x/exp/slices"
)

// Kind is the coarse kind of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON-compatible value tree node. The zero Value is Undefined,
// which marks a hole in an array and is omitted from objects.
type Value struct {
	kind  Kind
	b     bool
	num   float64
	str   string
	elems []Value
	mems  []Member
}

// Member is one key/value pair of an object. Objects keep their members in
// insertion order.
type Member struct {
	Key   string
	Value Value
}

func Undefined() Value           { return Value{} }
func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(f float64) Value     { return Value{kind: KindNumber, num: f} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func Array(elems ...Value) Value { return Value{kind: KindArray, elems: elems} }

// Object builds an object from members in order. A repeated key keeps the
// position of its first occurrence and the value of its last.
func Object(members ...Member) Value {
	var seen map[string]int
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if seen == nil {
			seen = make(map[string]int, len(members))
		}
		if i, ok := seen[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		seen[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: KindObject, mems: out}
}

// M is shorthand for a Member literal.
func M(key string, v Value) Member { return Member{Key: key, Value: v} }

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) Bool() bool        { return v.b }
func (v Value) Float() float64    { return v.num }
func (v Value) Str() string       { return v.str }
func (v Value) Elems() []Value    { return v.elems }
func (v Value) Members() []Member { return v.mems }

// Len returns the element count of an array or the member count of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.elems)
	case KindObject:
		return len(v.mems)
	}
	return 0
}

// Get returns the value stored under key in an object.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.mems {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep equality, including object key order. Numbers compare by
// bit pattern, so -0 and 0 differ.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return math.Float64bits(v.num) == math.Float64bits(o.num)
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
	case KindObject:
		if len(v.mems) != len(o.mems) {
			return false
		}
		for i := range v.mems {
			if v.mems[i].Key != o.mems[i].Key || !v.mems[i].Value.Equal(o.mems[i].Value) {
				return false
			}
		}
	}
	return true
}

// FromAny converts a dynamic Go value. Maps become objects with sorted keys,
// slices and arrays become arrays, json.Number and every numeric kind become
// numbers. Functions, channels, complex numbers and other values with no JSON
// form become Undefined; NaN and infinities become Null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Value:
		if t == nil {
			return Null()
		}
		return *t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		return number(t)
	case float32:
		return number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Undefined()
		}
		return number(f)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromAny(e)
		}
		return Array(elems...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		mems := make([]Member, 0, len(keys))
		for _, k := range keys {
			if e := FromAny(t[k]); !e.IsUndefined() {
				mems = append(mems, Member{Key: k, Value: e})
			}
		}
		return Value{kind: KindObject, mems: mems}
	case []Member:
		return Object(t...)
	}
	return fromReflect(reflect.ValueOf(x))
}

func number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Number(f)
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return number(rv.Float())
	case reflect.String:
		return String(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null()
		}
		elems := make([]Value, rv.Len())
		for i := range elems {
			elems[i] = FromAny(rv.Index(i).Interface())
		}
		return Array(elems...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Undefined()
		}
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			switch {
			case a.String() < b.String():
				return -1
			case a.String() > b.String():
				return 1
			}
			return 0
		})
		mems := make([]Member, 0, len(keys))
		for _, k := range keys {
			if e := FromAny(rv.MapIndex(k).Interface()); !e.IsUndefined() {
				mems = append(mems, Member{Key: k.String(), Value: e})
			}
		}
		return Value{kind: KindObject, mems: mems}
	}
	return Undefined()
}

// Any converts v to plain Go values: nil, bool, float64, string, []any and
// map[string]any. Object key order is lost. Undefined converts to nil.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.mems))
		for _, m := range v.mems {
			if !m.Value.IsUndefined() {
				out[m.Key] = m.Value.Any()
			}
		}
		return out
	}
	return nil
}
