package store

import (
	"fmt"
	"strings"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/element"
	"github.com/dukaforge/silo/pkg/identifier"
	"github.com/dukaforge/silo/pkg/schema"
	"github.com/dukaforge/silo/pkg/typecheck"
	"github.com/dukaforge/silo/pkg/value"
)

func columnTypeMap(tbl *schema.Table) map[string]schema.ColumnType {
	m := make(map[string]schema.ColumnType, len(tbl.Columns))
	for _, c := range tbl.Columns {
		m[c.Name] = c.Type
	}
	return m
}

func (s *Store) requireTable(collection string) (*schema.Table, error) {
	tbl, ok := s.model.Table(collection)
	if !ok {
		return nil, dberr.Newf(dberr.CollectionNotFound, collection, "collection %q not found", collection)
	}
	return tbl, nil
}

func (s *Store) lookupIDByLabel(collection, label string) (int64, error) {
	var id int64
	err := s.ex().QueryRow(
		fmt.Sprintf(`SELECT id FROM %s WHERE label = ?`, identifier.Quote(collection)), label,
	).Scan(&id)
	if err != nil {
		return 0, dberr.Newf(dberr.ElementNotFound, collection, "label %q not found: %v", label, err)
	}
	return id, nil
}

func (s *Store) companionValueColumn(companionTable string) (schema.Column, error) {
	tbl, ok := s.model.Table(companionTable)
	if !ok {
		return schema.Column{}, dberr.Newf(dberr.AttributeNotFound, companionTable, "companion table %q not found", companionTable)
	}
	cols := tbl.ValueColumns()
	if len(cols) == 0 {
		return schema.Column{}, dberr.Newf(dberr.InvalidSchema, companionTable, "companion table %q has no value column", companionTable)
	}
	return cols[0], nil
}

// CreateElement inserts e's main row, then its vector, set and
// time-series attributes, all within a single (possibly implicit)
// transaction. Returns the engine-assigned id.
func (s *Store) CreateElement(collection string, e *element.Element) (int64, error) {
	tbl, err := s.requireTable(collection)
	if err != nil {
		return 0, err
	}

	label := e.Label()
	if label == "" {
		return 0, dberr.New(dberr.EmptyElement, "label is required and must be non-empty")
	}

	scalars := e.Scalars()
	colTypes := columnTypeMap(tbl)
	for name := range scalars {
		if _, ok := colTypes[name]; !ok {
			return 0, dberr.Newf(dberr.AttributeNotFound, collection, "unknown scalar attribute %q", name)
		}
	}
	if err := typecheck.ValidateElement(collection, scalars, colTypes); err != nil {
		return 0, err
	}

	var id int64
	err = s.withImplicitTx(func() error {
		if _, err := s.lookupIDByLabel(collection, label); err == nil {
			return dberr.Newf(dberr.DuplicateElement, collection, "label %q already exists in %q", label, collection)
		}

		names := []string{"label"}
		args := []any{label}
		for name, v := range scalars {
			if name == "label" {
				continue
			}
			names = append(names, name)
			args = append(args, v.Any())
		}

		placeholders := make([]string, len(names))
		quoted := make([]string, len(names))
		for i, n := range names {
			placeholders[i] = "?"
			quoted[i] = identifier.Quote(n)
		}

		result, err := s.ex().Exec(
			fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
				identifier.Quote(collection), strings.Join(quoted, ", "), strings.Join(placeholders, ", ")),
			args...)
		if err != nil {
			return dberr.Newf(dberr.SqlError, collection, "inserting element: %v", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return dberr.Newf(dberr.SqlError, collection, "reading inserted id: %v", err)
		}

		for group, values := range e.Vectors() {
			if err := s.writeVectorGroup(collection, group, id, values); err != nil {
				return err
			}
		}
		for group, values := range e.Sets() {
			if err := s.writeSetGroup(collection, group, id, values); err != nil {
				return err
			}
		}
		for group, ts := range e.TimeSeriesGroups() {
			if err := s.writeTimeSeriesGroup(collection, group, id, ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) writeVectorGroup(collection, group string, id int64, values []value.Value) error {
	table := schema.VectorTableName(collection, group)
	col, err := s.companionValueColumn(table)
	if err != nil {
		return err
	}
	for i, v := range values {
		if err := typecheck.Validate(table, col.Name, v, col.Type); err != nil {
			return err
		}
		_, err := s.ex().Exec(
			fmt.Sprintf(`INSERT INTO %s (id, vector_index, %s) VALUES (?, ?, ?)`,
				identifier.Quote(table), identifier.Quote(col.Name)),
			id, i, v.Any())
		if err != nil {
			return dberr.Newf(dberr.SqlError, table, "inserting vector element: %v", err)
		}
	}
	return nil
}

func (s *Store) writeSetGroup(collection, group string, id int64, values []value.Value) error {
	table := schema.SetTableName(collection, group)
	col, err := s.companionValueColumn(table)
	if err != nil {
		return err
	}
	for _, v := range dedupeValues(values) {
		if err := typecheck.Validate(table, col.Name, v, col.Type); err != nil {
			return err
		}
		_, err := s.ex().Exec(
			fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES (?, ?)`, identifier.Quote(table), identifier.Quote(col.Name)),
			id, v.Any())
		if err != nil {
			return dberr.Newf(dberr.SqlError, table, "inserting set element: %v", err)
		}
	}
	return nil
}

func (s *Store) writeTimeSeriesGroup(collection, group string, id int64, ts element.TimeSeries) error {
	table := schema.TimeSeriesTableName(collection, group)
	tbl, ok := s.model.Table(table)
	if !ok {
		return dberr.Newf(dberr.AttributeNotFound, table, "time series table %q not found", table)
	}

	n := ts.Len()
	if n < 0 {
		return dberr.Newf(dberr.InvalidValue, table, "time series columns have mismatched lengths")
	}

	colNames := make([]string, 0, len(ts.Columns))
	for name := range ts.Columns {
		if _, ok := tbl.Column(name); !ok {
			return dberr.Newf(dberr.AttributeNotFound, table, "unknown time series column %q", name)
		}
		colNames = append(colNames, name)
	}

	quoted := make([]string, 0, len(colNames)+1)
	placeholders := make([]string, 0, len(colNames)+1)
	quoted = append(quoted, "id")
	placeholders = append(placeholders, "?")
	for _, name := range colNames {
		quoted = append(quoted, identifier.Quote(name))
		placeholders = append(placeholders, "?")
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		identifier.Quote(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	for row := 0; row < n; row++ {
		args := make([]any, 0, len(colNames)+1)
		args = append(args, id)
		for _, name := range colNames {
			args = append(args, ts.Columns[name][row].Any())
		}
		if _, err := s.ex().Exec(stmt, args...); err != nil {
			return dberr.Newf(dberr.SqlError, table, "inserting time series row: %v", err)
		}
	}
	return nil
}

func dedupeValues(values []value.Value) []value.Value {
	out := make([]value.Value, 0, len(values))
	for _, v := range values {
		dup := false
		for _, seen := range out {
			if value.Equal(v, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// DeleteElementByLabel deletes the main row for label in collection;
// companion rows cascade via the FOREIGN KEY ON DELETE CASCADE clauses
// the validator requires.
func (s *Store) DeleteElementByLabel(collection, label string) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		return s.deleteElementByID(collection, id)
	})
}

// DeleteElementByID deletes the main row by engine-assigned id.
func (s *Store) DeleteElementByID(collection string, id int64) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	return s.withImplicitTx(func() error { return s.deleteElementByID(collection, id) })
}

func (s *Store) deleteElementByID(collection string, id int64) error {
	result, err := s.ex().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, identifier.Quote(collection)), id)
	if err != nil {
		return dberr.Newf(dberr.SqlError, collection, "deleting element: %v", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return dberr.Newf(dberr.SqlError, collection, "checking delete result: %v", err)
	}
	if n == 0 {
		return dberr.Newf(dberr.ElementNotFound, collection, "id %d not found", id)
	}
	return nil
}

// DeleteTimeSeries deletes every row of group belonging to label's
// element, leaving the parent element and its other attributes intact.
func (s *Store) DeleteTimeSeries(collection, group, label string) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.TimeSeriesTableName(collection, group)
	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		if _, err := s.ex().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, identifier.Quote(table)), id); err != nil {
			return dberr.Newf(dberr.SqlError, table, "deleting time series rows: %v", err)
		}
		return nil
	})
}

// UpdateScalarParameter overwrites a single scalar attribute for label's
// element, type-checked against column's declared type.
func (s *Store) UpdateScalarParameter(collection, column, label string, v value.Value) error {
	tbl, err := s.requireTable(collection)
	if err != nil {
		return err
	}
	col, ok := tbl.Column(column)
	if !ok {
		return dberr.Newf(dberr.AttributeNotFound, collection, "unknown scalar attribute %q", column)
	}
	if err := typecheck.Validate(collection, column, v, col.Type); err != nil {
		return err
	}
	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		_, err = s.ex().Exec(
			fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, identifier.Quote(collection), identifier.Quote(column)),
			v.Any(), id)
		if err != nil {
			return dberr.Newf(dberr.SqlError, collection, "updating scalar parameter: %v", err)
		}
		return nil
	})
}

// UpdateVectorParameters replaces every row of C_vector_column for
// label's element with values, in order, vector_index starting at 0.
func (s *Store) UpdateVectorParameters(collection, column, label string, values []value.Value) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.VectorTableName(collection, column)
	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		if _, err := s.ex().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, identifier.Quote(table)), id); err != nil {
			return dberr.Newf(dberr.SqlError, table, "clearing prior vector rows: %v", err)
		}
		return s.writeVectorGroup(collection, column, id, values)
	})
}

// UpdateSetParameters replaces every row of C_set_column for label's
// element with the deduplicated contents of values.
func (s *Store) UpdateSetParameters(collection, column, label string, values []value.Value) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.SetTableName(collection, column)
	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		if _, err := s.ex().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, identifier.Quote(table)), id); err != nil {
			return dberr.Newf(dberr.SqlError, table, "clearing prior set rows: %v", err)
		}
		return s.writeSetGroup(collection, column, id, values)
	})
}

// UpdateTimeSeriesRow upserts a single time-series row identified by its
// dimension key (dateTime) for label's element.
func (s *Store) UpdateTimeSeriesRow(collection, group, label string, dateTime string, v value.Value) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.TimeSeriesTableName(collection, group)
	tbl, ok := s.model.Table(table)
	if !ok {
		return dberr.Newf(dberr.AttributeNotFound, table, "time series table %q not found", table)
	}
	col, err := s.companionValueColumn(table)
	if err != nil {
		return err
	}
	if err := typecheck.Validate(table, col.Name, v, col.Type); err != nil {
		return err
	}
	if _, ok := tbl.Column("date_time"); !ok {
		return dberr.Newf(dberr.InvalidSchema, table, "time series table %q has no date_time dimension column", table)
	}

	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		res, err := s.ex().Exec(
			fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ? AND date_time = ?`,
				identifier.Quote(table), identifier.Quote(col.Name)),
			v.Any(), id, dateTime)
		if err != nil {
			return dberr.Newf(dberr.SqlError, table, "updating time series row: %v", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return dberr.Newf(dberr.SqlError, table, "checking update result: %v", err)
		}
		if n == 0 {
			_, err := s.ex().Exec(
				fmt.Sprintf(`INSERT INTO %s (id, date_time, %s) VALUES (?, ?, ?)`, identifier.Quote(table), identifier.Quote(col.Name)),
				id, dateTime, v.Any())
			if err != nil {
				return dberr.Newf(dberr.SqlError, table, "inserting time series row: %v", err)
			}
		}
		return nil
	})
}

// SetTimeSeriesFile records path as the file-backed time series value for
// (collection, parameter, label). path is stored exactly as given; it is
// not converted to a path relative to the store file's directory.
func (s *Store) SetTimeSeriesFile(collection, parameter, label, path string) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.FilesTableName(collection)
	if _, ok := s.model.Table(table); !ok {
		return dberr.Newf(dberr.AttributeNotFound, table, "files table %q not found", table)
	}
	return s.withImplicitTx(func() error {
		id, err := s.lookupIDByLabel(collection, label)
		if err != nil {
			return err
		}
		res, err := s.ex().Exec(
			fmt.Sprintf(`UPDATE %s SET path = ? WHERE id = ? AND parameter = ?`, identifier.Quote(table)),
			path, id, parameter)
		if err != nil {
			return dberr.Newf(dberr.SqlError, table, "updating file path: %v", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return dberr.Newf(dberr.SqlError, table, "checking update result: %v", err)
		}
		if n == 0 {
			_, err := s.ex().Exec(
				fmt.Sprintf(`INSERT INTO %s (id, parameter, path) VALUES (?, ?, ?)`, identifier.Quote(table)),
				id, parameter, path)
			if err != nil {
				return dberr.Newf(dberr.SqlError, table, "inserting file path: %v", err)
			}
		}
		return nil
	})
}

// SetScalarRelation resolves parentLabel and childLabel to ids and sets
// collection.relation = childID on the parent's row.
func (s *Store) SetScalarRelation(collection, relation, parentLabel, childLabel, childCollection string) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	return s.withImplicitTx(func() error {
		parentID, err := s.lookupIDByLabel(collection, parentLabel)
		if err != nil {
			return err
		}
		childID, err := s.lookupIDByLabel(childCollection, childLabel)
		if err != nil {
			return err
		}
		_, err = s.ex().Exec(
			fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, identifier.Quote(collection), identifier.Quote(relation)),
			childID, parentID)
		if err != nil {
			return dberr.Newf(dberr.SqlError, collection, "setting scalar relation %q: %v", relation, err)
		}
		return nil
	})
}

// SetVectorRelation replaces C_vector_relation's rows for parentLabel
// with id tuples resolved from childLabels, vector_index starting at 0.
func (s *Store) SetVectorRelation(collection, relation, parentLabel, childCollection string, childLabels []string) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.VectorTableName(collection, relation)
	return s.withImplicitTx(func() error {
		parentID, err := s.lookupIDByLabel(collection, parentLabel)
		if err != nil {
			return err
		}
		if _, err := s.ex().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, identifier.Quote(table)), parentID); err != nil {
			return dberr.Newf(dberr.SqlError, table, "clearing prior relation rows: %v", err)
		}
		for i, childLabel := range childLabels {
			childID, err := s.lookupIDByLabel(childCollection, childLabel)
			if err != nil {
				return err
			}
			if _, err := s.ex().Exec(
				fmt.Sprintf(`INSERT INTO %s (id, vector_index, %s) VALUES (?, ?, ?)`, identifier.Quote(table), identifier.Quote("ref_id")),
				parentID, i, childID); err != nil {
				return dberr.Newf(dberr.SqlError, table, "inserting vector relation row: %v", err)
			}
		}
		return nil
	})
}

// SetSetRelation replaces C_set_relation's rows for parentLabel with the
// deduplicated id set resolved from childLabels.
func (s *Store) SetSetRelation(collection, relation, parentLabel, childCollection string, childLabels []string) error {
	if _, err := s.requireTable(collection); err != nil {
		return err
	}
	table := schema.SetTableName(collection, relation)
	return s.withImplicitTx(func() error {
		parentID, err := s.lookupIDByLabel(collection, parentLabel)
		if err != nil {
			return err
		}
		if _, err := s.ex().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, identifier.Quote(table)), parentID); err != nil {
			return dberr.Newf(dberr.SqlError, table, "clearing prior relation rows: %v", err)
		}
		seen := make(map[string]bool)
		for _, childLabel := range childLabels {
			if seen[childLabel] {
				continue
			}
			seen[childLabel] = true
			childID, err := s.lookupIDByLabel(childCollection, childLabel)
			if err != nil {
				return err
			}
			if _, err := s.ex().Exec(
				fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES (?, ?)`, identifier.Quote(table), identifier.Quote("ref_id")),
				parentID, childID); err != nil {
				return dberr.Newf(dberr.SqlError, table, "inserting set relation row: %v", err)
			}
		}
		return nil
	})
}
