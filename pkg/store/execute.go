package store

import (
	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/value"
)

// Execute is the escape-hatch pass-through query path: arbitrary sql
// with positional params, returned as a Rows snapshot. Callers needing
// mutation-only statements should use ExecuteStatement, which does not
// materialise a result set.
func (s *Store) Execute(sql string, params []value.Value) (*value.Rows, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Any()
	}

	rows, err := s.ex().Query(sql, args...)
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, "execute", "%v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, "execute", "reading columns: %v", err)
	}

	var result []value.Row
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dberr.Newf(dberr.SqlError, "execute", "scanning row: %v", err)
		}
		values := make([]value.Value, len(columns))
		for i, c := range cells {
			values[i] = value.FromScan(c)
		}
		result = append(result, value.Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Newf(dberr.SqlError, "execute", "reading rows: %v", err)
	}

	return value.NewRows(columns, result), nil
}

// ExecuteStatement runs sql for side effects only (INSERT/UPDATE/DELETE or
// DDL), returning the number of rows affected.
func (s *Store) ExecuteStatement(sql string, params []value.Value) (int64, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Any()
	}
	result, err := s.ex().Exec(sql, args...)
	if err != nil {
		return 0, dberr.Newf(dberr.SqlError, "execute", "%v", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, dberr.Newf(dberr.SqlError, "execute", "reading rows affected: %v", err)
	}
	return n, nil
}
