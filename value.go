package asqlite

import (
	"bytes"
	"fmt"
	"time"

	"github.com/asyncsqlite/asqlite-go/engine"
)

// Kind identifies which variant of a Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

// String returns the SQL name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is one storable SQL value: integer, float, text, blob, or null.
// Exactly one variant is active. The zero Value is null. Host conversions
// (bool, time) are projections over these variants, never variants of their
// own.
type Value struct {
	kind  Kind
	int   int64
	float float64
	text  string
	blob  []byte
}

// Null returns the null value.
func Null() Value { return Value{} }

// Integer returns an integer value.
func Integer(v int64) Value { return Value{kind: KindInteger, int: v} }

// Float returns a float value.
func Float(v float64) Value { return Value{kind: KindFloat, float: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, text: v} }

// Blob returns a blob value. A zero-length blob is a legal value distinct
// from null.
func Blob(v []byte) Value {
	if v == nil {
		v = []byte{}
	}
	return Value{kind: KindBlob, blob: v}
}

// Bool returns an integer value holding 1 for true and 0 for false.
func Bool(v bool) Value {
	if v {
		return Integer(1)
	}
	return Integer(0)
}

// Timestamp returns a float value holding t as POSIX seconds since the
// epoch, fractional part included.
func Timestamp(t time.Time) Value {
	return Float(float64(t.UnixNano()) / float64(time.Second))
}

// ValueOf converts a host scalar to a Value. A nil input is the null value,
// never an error.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case int:
		return Integer(int64(x)), nil
	case int32:
		return Integer(int64(x)), nil
	case int64:
		return Integer(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Timestamp(x), nil
	}
	return Null(), fmt.Errorf("unsupported value type %T", v)
}

// Kind reports the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the null variant is active.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.int, true
}

// Float64 returns the float payload.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.float, true
}

// Text returns the text payload.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Blob returns the blob payload. Callers must not mutate it.
func (v Value) Blob() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return v.blob, true
}

// Bool projects an integer value to a bool (non-zero is true).
func (v Value) Bool() (bool, bool) {
	if v.kind != KindInteger {
		return false, false
	}
	return v.int != 0, true
}

// Time projects the value to a timestamp. Dates are stored as epoch
// seconds in the float variant, but columns written as integral dates come
// back as integers, so both representations are accepted.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindFloat:
		sec := int64(v.float)
		nsec := int64((v.float - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec), true
	case KindInteger:
		return time.Unix(v.int, 0), true
	}
	return time.Time{}, false
}

// Equal reports whether two values hold the same variant and payload. Blob
// payloads compare by content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.int == other.int
	case KindFloat:
		return v.float == other.float
	case KindText:
		return v.text == other.text
	case KindBlob:
		return bytes.Equal(v.blob, other.blob)
	}
	return true
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.int)
	case KindFloat:
		return fmt.Sprintf("%g", v.float)
	case KindText:
		return fmt.Sprintf("%q", v.text)
	case KindBlob:
		return fmt.Sprintf("x'%x'", v.blob)
	}
	return "NULL"
}

// fromNative decodes a boundary value by its runtime type tag. An unknown
// tag degrades to null rather than failing the whole row.
func fromNative(rv engine.RawValue) Value {
	switch rv.Type {
	case engine.TypeInteger:
		return Integer(rv.Int)
	case engine.TypeFloat:
		return Float(rv.Float)
	case engine.TypeText:
		return Text(string(rv.Bytes))
	case engine.TypeBlob:
		return Blob(rv.Bytes)
	default:
		return Null()
	}
}

// toNative encodes the value for the boundary.
func (v Value) toNative() engine.RawValue {
	switch v.kind {
	case KindInteger:
		return engine.RawValue{Type: engine.TypeInteger, Int: v.int}
	case KindFloat:
		return engine.RawValue{Type: engine.TypeFloat, Float: v.float}
	case KindText:
		return engine.RawValue{Type: engine.TypeText, Bytes: []byte(v.text)}
	case KindBlob:
		return engine.RawValue{Type: engine.TypeBlob, Bytes: v.blob}
	default:
		return engine.RawValue{Type: engine.TypeNull}
	}
}
