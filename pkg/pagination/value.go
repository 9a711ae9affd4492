package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind identifies the dynamic type carried by a Value.
type ValueKind uint8

// Value kinds.
const (
	KindInvalid ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
)

var kindNames = map[ValueKind]string{
	KindString: "string",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindTime:   "time",
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

func parseKind(name string) (ValueKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// Value is a scalar sort key or filter operand. The zero Value is invalid.
// Values are comparable with == and keep their kind across a JSON round-trip.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	// ns holds the sub-second part of a time; i holds its Unix seconds.
	ns int64
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// TimeValue wraps a timestamp with nanosecond precision, normalised to UTC.
func TimeValue(t time.Time) Value {
	return Value{kind: KindTime, i: t.Unix(), ns: int64(t.Nanosecond())}
}

// Kind returns the dynamic kind of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string payload.
func (v Value) AsString() string { return v.s }

// AsInt returns the integer payload.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the numeric payload as float64 for int and float values.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// AsTime returns the timestamp payload in UTC.
func (v Value) AsTime() time.Time { return time.Unix(v.i, v.ns).UTC() }

// Native returns the Go value a storage driver expects.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.AsTime()
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.AsTime().Format(time.RFC3339Nano)
	default:
		return "<invalid>"
	}
}

// Compare orders v against other. Int and float values compare numerically.
// Values of unrelated kinds are ordered by kind so the result is still total.
func (v Value) Compare(other Value) int {
	if v.isNumeric() && other.isNumeric() && v.kind != other.kind {
		return compareOrdered(v.AsFloat(), other.AsFloat())
	}
	if v.kind != other.kind {
		return compareOrdered(v.kind, other.kind)
	}
	switch v.kind {
	case KindString:
		return compareOrdered(v.s, other.s)
	case KindInt:
		return compareOrdered(v.i, other.i)
	case KindTime:
		if c := compareOrdered(v.i, other.i); c != 0 {
			return c
		}
		return compareOrdered(v.ns, other.ns)
	case KindFloat:
		return compareOrdered(v.f, other.f)
	case KindBool:
		switch {
		case v.b == other.b:
			return 0
		case !v.b:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}

func (v Value) isNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

func compareOrdered[T int64 | float64 | string | ValueKind](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type valueWire struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// MarshalJSON encodes v together with its kind.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return []byte("null"), nil
	}
	var payload any
	switch v.kind {
	case KindString:
		payload = v.s
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = v.f
	case KindBool:
		payload = v.b
	case KindTime:
		payload = v.AsTime().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueWire{T: v.kind.String(), V: raw})
}

// UnmarshalJSON decodes the representation produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, ok := parseKind(w.T)
	if !ok {
		return fmt.Errorf("unknown value kind %q", w.T)
	}
	if len(w.V) == 0 {
		return fmt.Errorf("value of kind %s has no payload", kind)
	}
	switch kind {
	case KindString:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case KindInt:
		var i int64
		if err := json.Unmarshal(w.V, &i); err != nil {
			return err
		}
		*v = IntValue(i)
	case KindFloat:
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return err
		}
		*v = FloatValue(f)
	case KindBool:
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case KindTime:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*v = TimeValue(t)
	}
	return nil
}
