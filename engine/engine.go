// Package engine binds the native SQLite library for embedded,
// single-connection use.
//
// The package loads libsqlite3 dynamically (no cgo) and exposes the narrow
// surface the driver needs: open/prepare/step/finalize/close, positional
// parameter binding, column inspection by runtime type tag, and scalar
// function registration. Everything crossing the native boundary is copied
// with an explicit byte length; no Go code ever retains a pointer into
// engine-owned memory.
package engine

import "fmt"

// Type is the runtime type tag of a SQLite value.
type Type int32

const (
	TypeInteger Type = 1
	TypeFloat   Type = 2
	TypeText    Type = 3
	TypeBlob    Type = 4
	TypeNull    Type = 5
)

// String returns the SQL name of the type tag.
func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeNull:
		return "NULL"
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// RawValue is a decoded native value: a type tag plus the matching payload.
// Bytes holds text or blob payloads copied out of engine memory; for a
// zero-length blob it is an empty, non-nil slice so the variant survives a
// round trip.
type RawValue struct {
	Type  Type
	Int   int64
	Float float64
	Bytes []byte
}

// ScalarFunc is a scalar SQL function body at the boundary level. It is
// invoked synchronously from inside the engine's call stack; argument
// payloads are copies and safe to retain.
type ScalarFunc func(args []RawValue) RawValue

// Error is a failed engine call: the extended result code plus the engine's
// message text.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sqlite error %d: %s", e.Code, e.Message)
}

// Conn is one open database handle. Handles are not safe for concurrent use
// from multiple goroutines; the caller serializes access.
type Conn interface {
	// Prepare compiles sql into a statement. On a compile error no
	// statement is returned and nothing needs finalizing.
	Prepare(sql string) (Stmt, error)

	// CreateScalarFunction registers fn under name with a fixed arity.
	// The engine owns the registration from this point: destroy is called
	// exactly once, when the engine tears the registration down.
	CreateScalarFunction(name string, arity int, fn ScalarFunc, destroy func()) error

	// Close releases the handle. The connection is unusable afterwards.
	Close() error
}

// Stmt is one prepared statement. Bind indices are 1-based, following the
// native convention.
type Stmt interface {
	BindInt64(index int, v int64) error
	BindDouble(index int, v float64) error
	BindText(index int, v string) error
	BindBlob(index int, v []byte) error
	BindNull(index int) error

	// Step advances execution. It returns true when a result row is
	// available and false once the statement has run to completion.
	Step() (bool, error)

	ColumnCount() int
	ColumnName(index int) string
	ColumnType(index int) Type
	ColumnInt64(index int) int64
	ColumnDouble(index int) float64
	ColumnText(index int) string
	ColumnBlob(index int) []byte

	// Finalize releases the statement handle. Safe to call once on every
	// exit path; the statement must not be used afterwards.
	Finalize() error
}
