package packjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/jsonc"
)

// ParseJSON parses JSON text into a Value, keeping object keys in document
// order. Comments and trailing commas are accepted. Numbers outside the
// float64 range become null.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	v, err := parseJSON(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("packjson: invalid JSON: data after top-level value")
	}
	return v, nil
}

func parseJSON(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("packjson: invalid JSON: nesting deeper than %d", maxDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Value{}, fmt.Errorf("packjson: invalid JSON: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("packjson: invalid JSON number %q: %w", t, err)
		}
		return number(f), nil
	case json.Delim:
		if t == '[' {
			var elems []Value
			for dec.More() {
				e, err := parseJSON(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, e)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("packjson: invalid JSON: %w", err)
			}
			return Array(elems...), nil
		}
		var members []Member
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return Value{}, fmt.Errorf("packjson: invalid JSON: %w", err)
			}
			e, err := parseJSON(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: key.(string), Value: e})
		}
		if _, err := dec.Token(); err != nil {
			return Value{}, fmt.Errorf("packjson: invalid JSON: %w", err)
		}
		return Object(members...), nil
	}
	return Value{}, fmt.Errorf("packjson: invalid JSON token %v", tok)
}

// MarshalJSON renders v as JSON with object keys in stored order. Undefined
// array elements render as null and Undefined members are omitted.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String returns the JSON text of v.
func (v Value) String() string {
	return string(v.appendJSON(nil))
}

func (v Value) appendJSON(dst []byte) []byte {
	switch k, _ := Classify(v); k {
	case KindBool:
		return strconv.AppendBool(dst, v.b)
	case KindNumber:
		b, _ := json.Marshal(v.num)
		return append(dst, b...)
	case KindString:
		b, _ := json.Marshal(v.str)
		return append(dst, b...)
	case KindArray:
		dst = append(dst, '[')
		for i, e := range v.elems {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = e.appendJSON(dst)
		}
		return append(dst, ']')
	case KindObject:
		dst = append(dst, '{')
		first := true
		for _, m := range v.mems {
			if m.Value.IsUndefined() {
				continue
			}
			if !first {
				dst = append(dst, ',')
			}
			first = false
			b, _ := json.Marshal(m.Key)
			dst = append(dst, b...)
			dst = append(dst, ':')
			dst = m.Value.appendJSON(dst)
		}
		return append(dst, '}')
	}
	return append(dst, "null"...)
}
