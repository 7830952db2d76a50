package asqlite

import "github.com/asyncsqlite/asqlite-go/engine"

// execQuery runs the full prepare, bind, step, finalize sequence for one
// query as a single blocking unit. It is called from a pool worker only.
//
// The statement is finalized on every exit path. On any failure the rows
// accumulated so far are discarded and the engine's structured error is
// returned as-is.
func execQuery(conn engine.Conn, sql string, params []Value) ([]Row, error) {
	stmt, err := conn.Prepare(sql)
	if err != nil {
		return nil, err
	}
	defer stmt.Finalize()

	for i, p := range params {
		// Native bind indices are 1-based.
		if err := bindValue(stmt, i+1, p); err != nil {
			return nil, err
		}
	}

	var rows []Row
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		rows = append(rows, projectRow(stmt))
	}
	return rows, nil
}

// bindValue dispatches one parameter to the bind call matching its variant.
// Text and blob payloads travel with their explicit byte length.
func bindValue(stmt engine.Stmt, index int, v Value) error {
	switch v.Kind() {
	case KindInteger:
		return stmt.BindInt64(index, v.int)
	case KindFloat:
		return stmt.BindDouble(index, v.float)
	case KindText:
		return stmt.BindText(index, v.text)
	case KindBlob:
		return stmt.BindBlob(index, v.blob)
	default:
		return stmt.BindNull(index)
	}
}

// projectRow snapshots the row the statement is positioned on. Each column
// is decoded by its runtime type tag: dynamic typing means the actual
// value type wins over whatever the column was declared as.
func projectRow(stmt engine.Stmt) Row {
	n := stmt.ColumnCount()
	columns := make([]Column, 0, n)
	for i := 0; i < n; i++ {
		columns = append(columns, Column{
			Name:  stmt.ColumnName(i),
			Value: columnValue(stmt, i),
		})
	}
	return Row{columns: columns}
}

func columnValue(stmt engine.Stmt, index int) Value {
	switch stmt.ColumnType(index) {
	case engine.TypeInteger:
		return Integer(stmt.ColumnInt64(index))
	case engine.TypeFloat:
		return Float(stmt.ColumnDouble(index))
	case engine.TypeText:
		return Text(stmt.ColumnText(index))
	case engine.TypeBlob:
		return Blob(stmt.ColumnBlob(index))
	default:
		// Unknown tags degrade to null instead of failing the row.
		return Null()
	}
}
