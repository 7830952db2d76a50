package asqlite

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncsqlite/asqlite-go/dispatch"
)

func newHarness(t *testing.T) (*dispatch.Loop, *dispatch.Pool) {
	t.Helper()
	loop := dispatch.NewLoop()
	pool := dispatch.NewPool(2)
	t.Cleanup(func() {
		pool.Close()
		loop.Close()
	})
	return loop, pool
}

func openTestConn(t *testing.T, storage Storage) *Connection {
	t.Helper()
	loop, pool := newHarness(t)
	conn, err := Open(storage, pool, loop).Await()
	if err != nil {
		if strings.Contains(err.Error(), "load libsqlite3") {
			t.Skipf("native sqlite unavailable: %v", err)
		}
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _, _ = conn.Close().Await() })
	return conn
}

func TestDuplicateColumnNames(t *testing.T) {
	conn := openTestConn(t, Memory())

	rows, err := conn.Query("SELECT 1 AS foo, 2 AS foo").Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, 2, row.Len())
	assert.Equal(t, "foo", row.At(0).Name)
	assert.Equal(t, "foo", row.At(1).Name)

	v, ok := row.Value("foo")
	require.True(t, ok)
	first, _ := v.Int64()
	assert.Equal(t, int64(1), first, "lookup returns the first match")

	var sum int64
	for _, c := range row.Columns() {
		if c.Name == "foo" {
			n, _ := c.Value.Int64()
			sum += n
		}
	}
	assert.Equal(t, int64(3), sum)
}

func TestZeroBlobIsNotNull(t *testing.T) {
	conn := openTestConn(t, Memory())

	rows, err := conn.Query("SELECT zeroblob(0) AS b").Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, ok := rows[0].Value("b")
	require.True(t, ok)
	require.Equal(t, KindBlob, v.Kind())
	b, _ := v.Blob()
	assert.Len(t, b, 0)
}

func TestParameterRoundTrip(t *testing.T) {
	conn := openTestConn(t, Memory())

	blob := []byte{0xDE, 0x00, 0xAD}
	rows, err := conn.Query(
		"SELECT ?1 AS i, ?2 AS f, ?3 AS t, ?4 AS b, ?5 AS n",
		Integer(-99), Float(0.125), Text("héllo"), Blob(blob), Null(),
	).Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	want := []Value{Integer(-99), Float(0.125), Text("héllo"), Blob(blob), Null()}
	for i, w := range want {
		assert.True(t, row.At(i).Value.Equal(w), "column %d: got %s want %s", i, row.At(i).Value, w)
	}
}

func TestUnknownFunctionIsCompilationError(t *testing.T) {
	conn := openTestConn(t, Memory())

	_, err := conn.Query("SELECT definitely_missing(1)").Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such function: definitely_missing")
}

func TestScalarFunctionRoundTrip(t *testing.T) {
	conn := openTestConn(t, Memory())

	var got []Value
	_, err := conn.CreateScalarFunction("describe5", 5, func(args []Value) (Value, error) {
		got = append([]Value(nil), args...)
		kinds := make([]string, len(args))
		for i, a := range args {
			kinds[i] = a.Kind().String()
		}
		return Text(strings.Join(kinds, ",")), nil
	}).Await()
	require.NoError(t, err)

	rows, err := conn.Query("SELECT describe5(8, 2.5, 'txt', x'0102', NULL) AS out").Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// One literal of each variant, decoded in call order.
	require.Len(t, got, 5)
	assert.True(t, got[0].Equal(Integer(8)))
	assert.True(t, got[1].Equal(Float(2.5)))
	assert.True(t, got[2].Equal(Text("txt")))
	assert.True(t, got[3].Equal(Blob([]byte{1, 2})))
	assert.True(t, got[4].IsNull())

	// The body's returned text is the query's result column.
	v, ok := rows[0].Value("out")
	require.True(t, ok)
	out, _ := v.Text()
	assert.Equal(t, "INTEGER,FLOAT,TEXT,BLOB,NULL", out)
}

func TestScalarFunctionErrorDegradesToNull(t *testing.T) {
	conn := openTestConn(t, Memory())

	_, err := conn.CreateScalarFunction("failing", 0, func(args []Value) (Value, error) {
		return Value{}, assert.AnError
	}).Await()
	require.NoError(t, err)

	rows, err := conn.Query("SELECT failing() AS out").Await()
	require.NoError(t, err, "a body error does not fail the query")
	require.Len(t, rows, 1)
	v, _ := rows[0].Value("out")
	assert.True(t, v.IsNull())
}

func TestScalarFunctionWrongArity(t *testing.T) {
	conn := openTestConn(t, Memory())

	_, err := conn.CreateScalarFunction("twoargs", 2, func(args []Value) (Value, error) {
		return Integer(int64(len(args))), nil
	}).Await()
	require.NoError(t, err)

	_, err = conn.Query("SELECT twoargs(1)").Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong number of arguments")
}

func TestInsertAndSelectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	conn := openTestConn(t, File(path))

	_, err := conn.Query("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT, at REAL)").Await()
	require.NoError(t, err)

	stamp := time.Unix(1700000000, 0)
	_, err = conn.Query(
		"INSERT INTO notes (id, body, at) VALUES (?1, ?2, ?3)",
		Integer(1), Text("hello"), Timestamp(stamp),
	).Await()
	require.NoError(t, err)

	rows, err := conn.Query("SELECT body, at FROM notes WHERE id = ?1", Integer(1)).Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	body, ok := rows[0].Value("body")
	require.True(t, ok)
	text, _ := body.Text()
	assert.Equal(t, "hello", text)

	at, ok := rows[0].Value("at")
	require.True(t, ok)
	got, ok := at.Time()
	require.True(t, ok)
	assert.True(t, got.Equal(stamp), "date survives a float-encoded round trip")
}

func TestIntegralDateReadsBack(t *testing.T) {
	conn := openTestConn(t, Memory())

	_, err := conn.Query("CREATE TABLE events (at INTEGER)").Await()
	require.NoError(t, err)

	stamp := time.Unix(1700000000, 0)
	_, err = conn.Query("INSERT INTO events VALUES (?1)", Integer(stamp.Unix())).Await()
	require.NoError(t, err)

	rows, err := conn.Query("SELECT at FROM events").Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, _ := rows[0].Value("at")
	require.Equal(t, KindInteger, v.Kind())
	got, ok := v.Time()
	require.True(t, ok, "integral dates are accepted alongside float ones")
	assert.True(t, got.Equal(stamp))
}

func TestExecutionErrorDiscardsPartialRows(t *testing.T) {
	conn := openTestConn(t, Memory())

	setup := []string{
		"CREATE TABLE t (n INTEGER)",
		"INSERT INTO t VALUES (2), (1), (0)",
	}
	for _, sql := range setup {
		_, err := conn.Query(sql).Await()
		require.NoError(t, err)
	}

	// The first rows divide fine; the division by zero fails mid-step.
	rows, err := conn.Query("SELECT 10 / n FROM t ORDER BY n DESC").Await()
	require.Error(t, err)
	assert.Nil(t, rows)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	conn := openTestConn(t, Memory())

	_, err := conn.Close().Await()
	require.NoError(t, err)

	_, err = conn.Query("SELECT 1").Await()
	assert.ErrorIs(t, err, ErrClosed)

	_, err = conn.CreateScalarFunction("late", 0, func([]Value) (Value, error) {
		return Null(), nil
	}).Await()
	assert.ErrorIs(t, err, ErrClosed)

	_, err = conn.Close().Await()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChainedQueriesRunInOrder(t *testing.T) {
	conn := openTestConn(t, Memory())

	// Sequencing is the caller's job: chain on the returned futures.
	f := dispatch.Then(conn.Query("CREATE TABLE seq (n INTEGER)"), func([]Row) *dispatch.Future[[]Row] {
		return conn.Query("INSERT INTO seq VALUES (1), (2)")
	})
	f = dispatch.Then(f, func([]Row) *dispatch.Future[[]Row] {
		return conn.Query("SELECT sum(n) AS total FROM seq")
	})

	rows, err := f.Await()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Value("total")
	total, _ := v.Int64()
	assert.Equal(t, int64(3), total)
}
