package engine

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Native result codes. Only the ones the driver branches on are named.
const (
	okCode   = 0
	rowCode  = 100
	doneCode = 101
)

const (
	openReadWrite = 0x00000002
	openCreate    = 0x00000004

	utf8Encoding = 1
)

// SQLITE_TRANSIENT: the engine copies bound text/blob bytes before the bind
// call returns, so Go-owned buffers never outlive the call.
var transient = ^uintptr(0)

const ptrSize = unsafe.Sizeof(uintptr(0))

var (
	c_open_v2            func(filename string, ppDb unsafe.Pointer, flags int32, vfs uintptr) int32
	c_close_v2           func(db uintptr) int32
	c_errmsg             func(db uintptr) uintptr
	c_extended_errcode   func(db uintptr) int32
	c_prepare_v2         func(db uintptr, sql string, nByte int32, ppStmt unsafe.Pointer, pzTail unsafe.Pointer) int32
	c_step               func(stmt uintptr) int32
	c_finalize           func(stmt uintptr) int32
	c_bind_int64         func(stmt uintptr, index int32, v int64) int32
	c_bind_double        func(stmt uintptr, index int32, v float64) int32
	c_bind_text          func(stmt uintptr, index int32, p unsafe.Pointer, n int32, destructor uintptr) int32
	c_bind_blob          func(stmt uintptr, index int32, p unsafe.Pointer, n int32, destructor uintptr) int32
	c_bind_zeroblob      func(stmt uintptr, index int32, n int32) int32
	c_bind_null          func(stmt uintptr, index int32) int32
	c_column_count       func(stmt uintptr) int32
	c_column_name        func(stmt uintptr, index int32) uintptr
	c_column_type        func(stmt uintptr, index int32) int32
	c_column_int64       func(stmt uintptr, index int32) int64
	c_column_double      func(stmt uintptr, index int32) float64
	c_column_text        func(stmt uintptr, index int32) uintptr
	c_column_blob        func(stmt uintptr, index int32) uintptr
	c_column_bytes       func(stmt uintptr, index int32) int32
	c_create_function_v2 func(db uintptr, name string, nArg int32, enc int32, app uintptr, xFunc uintptr, xStep uintptr, xFinal uintptr, xDestroy uintptr) int32
	c_user_data          func(ctx uintptr) uintptr
	c_value_type         func(v uintptr) int32
	c_value_int64        func(v uintptr) int64
	c_value_double       func(v uintptr) float64
	c_value_text         func(v uintptr) uintptr
	c_value_blob         func(v uintptr) uintptr
	c_value_bytes        func(v uintptr) int32
	c_result_int64       func(ctx uintptr, v int64)
	c_result_double      func(ctx uintptr, v float64)
	c_result_text        func(ctx uintptr, p unsafe.Pointer, n int32, destructor uintptr)
	c_result_blob        func(ctx uintptr, p unsafe.Pointer, n int32, destructor uintptr)
	c_result_zeroblob    func(ctx uintptr, n int32)
	c_result_null        func(ctx uintptr)
)

var (
	loadOnce sync.Once
	loadErr  error

	// One native pointer per trampoline for the whole process; individual
	// registrations are dispatched through the user-data arena id.
	invokeCB  uintptr
	destroyCB uintptr
)

func libraryCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libsqlite3.dylib", "/usr/lib/libsqlite3.dylib"}
	default:
		return []string{"libsqlite3.so.3", "libsqlite3.so.0", "libsqlite3.so"}
	}
}

func load() error {
	loadOnce.Do(func() {
		var handle uintptr
		var err error
		for _, name := range libraryCandidates() {
			handle, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err == nil {
				break
			}
		}
		if err != nil {
			loadErr = fmt.Errorf("load libsqlite3: %w", err)
			return
		}

		purego.RegisterLibFunc(&c_open_v2, handle, "sqlite3_open_v2")
		purego.RegisterLibFunc(&c_close_v2, handle, "sqlite3_close_v2")
		purego.RegisterLibFunc(&c_errmsg, handle, "sqlite3_errmsg")
		purego.RegisterLibFunc(&c_extended_errcode, handle, "sqlite3_extended_errcode")
		purego.RegisterLibFunc(&c_prepare_v2, handle, "sqlite3_prepare_v2")
		purego.RegisterLibFunc(&c_step, handle, "sqlite3_step")
		purego.RegisterLibFunc(&c_finalize, handle, "sqlite3_finalize")
		purego.RegisterLibFunc(&c_bind_int64, handle, "sqlite3_bind_int64")
		purego.RegisterLibFunc(&c_bind_double, handle, "sqlite3_bind_double")
		purego.RegisterLibFunc(&c_bind_text, handle, "sqlite3_bind_text")
		purego.RegisterLibFunc(&c_bind_blob, handle, "sqlite3_bind_blob")
		purego.RegisterLibFunc(&c_bind_zeroblob, handle, "sqlite3_bind_zeroblob")
		purego.RegisterLibFunc(&c_bind_null, handle, "sqlite3_bind_null")
		purego.RegisterLibFunc(&c_column_count, handle, "sqlite3_column_count")
		purego.RegisterLibFunc(&c_column_name, handle, "sqlite3_column_name")
		purego.RegisterLibFunc(&c_column_type, handle, "sqlite3_column_type")
		purego.RegisterLibFunc(&c_column_int64, handle, "sqlite3_column_int64")
		purego.RegisterLibFunc(&c_column_double, handle, "sqlite3_column_double")
		purego.RegisterLibFunc(&c_column_text, handle, "sqlite3_column_text")
		purego.RegisterLibFunc(&c_column_blob, handle, "sqlite3_column_blob")
		purego.RegisterLibFunc(&c_column_bytes, handle, "sqlite3_column_bytes")
		purego.RegisterLibFunc(&c_create_function_v2, handle, "sqlite3_create_function_v2")
		purego.RegisterLibFunc(&c_user_data, handle, "sqlite3_user_data")
		purego.RegisterLibFunc(&c_value_type, handle, "sqlite3_value_type")
		purego.RegisterLibFunc(&c_value_int64, handle, "sqlite3_value_int64")
		purego.RegisterLibFunc(&c_value_double, handle, "sqlite3_value_double")
		purego.RegisterLibFunc(&c_value_text, handle, "sqlite3_value_text")
		purego.RegisterLibFunc(&c_value_blob, handle, "sqlite3_value_blob")
		purego.RegisterLibFunc(&c_value_bytes, handle, "sqlite3_value_bytes")
		purego.RegisterLibFunc(&c_result_int64, handle, "sqlite3_result_int64")
		purego.RegisterLibFunc(&c_result_double, handle, "sqlite3_result_double")
		purego.RegisterLibFunc(&c_result_text, handle, "sqlite3_result_text")
		purego.RegisterLibFunc(&c_result_blob, handle, "sqlite3_result_blob")
		purego.RegisterLibFunc(&c_result_zeroblob, handle, "sqlite3_result_zeroblob")
		purego.RegisterLibFunc(&c_result_null, handle, "sqlite3_result_null")

		invokeCB = purego.NewCallback(invokeTrampoline)
		destroyCB = purego.NewCallback(destroyTrampoline)
	})
	return loadErr
}

// Open opens (creating if necessary) the database at path. Use ":memory:"
// for a transient in-memory database.
func Open(path string) (Conn, error) {
	if err := load(); err != nil {
		return nil, err
	}
	var db uintptr
	rc := c_open_v2(path, unsafe.Pointer(&db), openReadWrite|openCreate, 0)
	if rc != okCode {
		err := &Error{Code: int(rc), Message: fmt.Sprintf("unable to open database %q", path)}
		if db != 0 {
			// Even on failure a handle is allocated, carrying the message.
			err.Code = int(c_extended_errcode(db))
			err.Message = goString(c_errmsg(db))
			c_close_v2(db)
		}
		return nil, err
	}
	return &libConn{db: db}, nil
}

type libConn struct {
	db uintptr
}

func (c *libConn) lastError() *Error {
	return &Error{
		Code:    int(c_extended_errcode(c.db)),
		Message: goString(c_errmsg(c.db)),
	}
}

func (c *libConn) Prepare(sql string) (Stmt, error) {
	var stmt uintptr
	rc := c_prepare_v2(c.db, sql, -1, unsafe.Pointer(&stmt), nil)
	if rc != okCode {
		if stmt != 0 {
			c_finalize(stmt)
		}
		return nil, c.lastError()
	}
	if stmt == 0 {
		// Whitespace or a bare comment compiles to no statement.
		return nil, &Error{Code: int(rc), Message: "empty statement"}
	}
	return &libStmt{stmt: stmt, conn: c}, nil
}

func (c *libConn) Close() error {
	if c.db == 0 {
		return nil
	}
	rc := c_close_v2(c.db)
	c.db = 0
	if rc != okCode {
		return &Error{Code: int(rc), Message: "close failed"}
	}
	return nil
}

type libStmt struct {
	stmt uintptr
	conn *libConn
}

func (s *libStmt) bindResult(rc int32) error {
	if rc != okCode {
		return s.conn.lastError()
	}
	return nil
}

func (s *libStmt) BindInt64(index int, v int64) error {
	return s.bindResult(c_bind_int64(s.stmt, int32(index), v))
}

func (s *libStmt) BindDouble(index int, v float64) error {
	return s.bindResult(c_bind_double(s.stmt, int32(index), v))
}

func (s *libStmt) BindText(index int, v string) error {
	// Explicit byte length; a NULL pointer would bind SQL NULL, so empty
	// text points at a dummy byte instead.
	buf := []byte(v)
	p := unsafe.Pointer(&dummyByte)
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	rc := c_bind_text(s.stmt, int32(index), p, int32(len(buf)), transient)
	runtime.KeepAlive(buf)
	return s.bindResult(rc)
}

func (s *libStmt) BindBlob(index int, v []byte) error {
	if len(v) == 0 {
		// bind_blob with a NULL pointer binds SQL NULL; zeroblob keeps the
		// zero-length blob a blob.
		return s.bindResult(c_bind_zeroblob(s.stmt, int32(index), 0))
	}
	rc := c_bind_blob(s.stmt, int32(index), unsafe.Pointer(&v[0]), int32(len(v)), transient)
	runtime.KeepAlive(v)
	return s.bindResult(rc)
}

func (s *libStmt) BindNull(index int) error {
	return s.bindResult(c_bind_null(s.stmt, int32(index)))
}

func (s *libStmt) Step() (bool, error) {
	switch rc := c_step(s.stmt); rc {
	case rowCode:
		return true, nil
	case doneCode:
		return false, nil
	default:
		return false, s.conn.lastError()
	}
}

func (s *libStmt) ColumnCount() int {
	return int(c_column_count(s.stmt))
}

func (s *libStmt) ColumnName(index int) string {
	return goString(c_column_name(s.stmt, int32(index)))
}

func (s *libStmt) ColumnType(index int) Type {
	return Type(c_column_type(s.stmt, int32(index)))
}

func (s *libStmt) ColumnInt64(index int) int64 {
	return c_column_int64(s.stmt, int32(index))
}

func (s *libStmt) ColumnDouble(index int) float64 {
	return c_column_double(s.stmt, int32(index))
}

func (s *libStmt) ColumnText(index int) string {
	// column_text before column_bytes, per the engine's conversion rules.
	p := c_column_text(s.stmt, int32(index))
	n := c_column_bytes(s.stmt, int32(index))
	return string(goBytes(p, int(n)))
}

func (s *libStmt) ColumnBlob(index int) []byte {
	p := c_column_blob(s.stmt, int32(index))
	n := c_column_bytes(s.stmt, int32(index))
	return goBytes(p, int(n))
}

func (s *libStmt) Finalize() error {
	if s.stmt == 0 {
		return nil
	}
	rc := c_finalize(s.stmt)
	s.stmt = 0
	if rc != okCode {
		return &Error{Code: int(rc), Message: "finalize failed"}
	}
	return nil
}

// Scalar function registry. The engine is handed an opaque arena id as user
// data; the id maps back to the Go closure on every invocation. Entries are
// removed, and the destroy hook runs, exactly once: whichever side observes
// the registration first under the lock wins.

type scalarEntry struct {
	fn      ScalarFunc
	destroy func()
}

var (
	scalarMu    sync.Mutex
	scalarSeq   uintptr
	scalarTable = make(map[uintptr]*scalarEntry)
)

func (c *libConn) CreateScalarFunction(name string, arity int, fn ScalarFunc, destroy func()) error {
	scalarMu.Lock()
	scalarSeq++
	id := scalarSeq
	scalarTable[id] = &scalarEntry{fn: fn, destroy: destroy}
	scalarMu.Unlock()

	rc := c_create_function_v2(c.db, name, int32(arity), utf8Encoding, id, invokeCB, 0, 0, destroyCB)
	if rc != okCode {
		// The engine invokes the destroy callback itself on a failed
		// registration; takeScalar is a no-op if that already happened.
		if entry := takeScalar(id); entry != nil && entry.destroy != nil {
			entry.destroy()
		}
		return c.lastError()
	}
	return nil
}

func takeScalar(id uintptr) *scalarEntry {
	scalarMu.Lock()
	defer scalarMu.Unlock()
	entry := scalarTable[id]
	delete(scalarTable, id)
	return entry
}

func invokeTrampoline(ctx uintptr, argc uintptr, argv uintptr) uintptr {
	id := c_user_data(ctx)
	scalarMu.Lock()
	entry := scalarTable[id]
	scalarMu.Unlock()
	if entry == nil {
		c_result_null(ctx)
		return 0
	}

	n := int(int32(argc))
	args := make([]RawValue, n)
	for i := 0; i < n; i++ {
		vp := *(*uintptr)(unsafe.Pointer(argv + uintptr(i)*ptrSize))
		args[i] = decodeValue(vp)
	}

	setResult(ctx, entry.fn(args))
	return 0
}

func destroyTrampoline(id uintptr) uintptr {
	if entry := takeScalar(id); entry != nil && entry.destroy != nil {
		entry.destroy()
	}
	return 0
}

// decodeValue copies one native argument value into a RawValue. The engine
// owns the backing memory only for the duration of the callback, so text
// and blob payloads are copied, never referenced.
func decodeValue(v uintptr) RawValue {
	tag := Type(c_value_type(v))
	switch tag {
	case TypeInteger:
		return RawValue{Type: tag, Int: c_value_int64(v)}
	case TypeFloat:
		return RawValue{Type: tag, Float: c_value_double(v)}
	case TypeText:
		p := c_value_text(v)
		n := c_value_bytes(v)
		return RawValue{Type: tag, Bytes: goBytes(p, int(n))}
	case TypeBlob:
		p := c_value_blob(v)
		n := c_value_bytes(v)
		return RawValue{Type: tag, Bytes: goBytes(p, int(n))}
	default:
		return RawValue{Type: tag}
	}
}

func setResult(ctx uintptr, v RawValue) {
	switch v.Type {
	case TypeInteger:
		c_result_int64(ctx, v.Int)
	case TypeFloat:
		c_result_double(ctx, v.Float)
	case TypeText:
		p := unsafe.Pointer(&dummyByte)
		if len(v.Bytes) > 0 {
			p = unsafe.Pointer(&v.Bytes[0])
		}
		c_result_text(ctx, p, int32(len(v.Bytes)), transient)
		runtime.KeepAlive(v.Bytes)
	case TypeBlob:
		if len(v.Bytes) == 0 {
			c_result_zeroblob(ctx, 0)
			return
		}
		c_result_blob(ctx, unsafe.Pointer(&v.Bytes[0]), int32(len(v.Bytes)), transient)
		runtime.KeepAlive(v.Bytes)
	default:
		c_result_null(ctx)
	}
}

var dummyByte byte

// goBytes copies n bytes of engine memory into a fresh slice. The copy is
// length-delimited; embedded NUL bytes survive. n == 0 yields an empty,
// non-nil slice.
func goBytes(p uintptr, n int) []byte {
	if n <= 0 || p == 0 {
		return []byte{}
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
	return out
}

// goString copies a NUL-terminated engine string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}
