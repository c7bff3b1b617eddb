package store

import (
	"fmt"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/identifier"
	"github.com/dukaforge/silo/pkg/schema"
	"github.com/dukaforge/silo/pkg/value"
)

// ReadScalar returns attr's value for every element of collection,
// ordered by id ascending, one entry per element (including Null).
func (s *Store) ReadScalar(collection, attr string) ([]value.Value, error) {
	tbl, err := s.requireTable(collection)
	if err != nil {
		return nil, err
	}
	if _, ok := tbl.Column(attr); !ok {
		return nil, dberr.Newf(dberr.AttributeNotFound, collection, "unknown scalar attribute %q", attr)
	}

	rows, err := s.ex().Query(
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY id ASC`, identifier.Quote(attr), identifier.Quote(collection)))
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, collection, "reading scalar %q: %v", attr, err)
	}
	defer rows.Close()

	var out []value.Value
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, dberr.Newf(dberr.SqlError, collection, "scanning scalar %q: %v", attr, err)
		}
		out = append(out, value.FromScan(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Newf(dberr.SqlError, collection, "reading scalar %q: %v", attr, err)
	}
	return out, nil
}

// ReadScalarByLabel returns attr's value for the element named label.
func (s *Store) ReadScalarByLabel(collection, attr, label string) (value.Value, error) {
	tbl, err := s.requireTable(collection)
	if err != nil {
		return value.Value{}, err
	}
	if _, ok := tbl.Column(attr); !ok {
		return value.Value{}, dberr.Newf(dberr.AttributeNotFound, collection, "unknown scalar attribute %q", attr)
	}

	var raw any
	err = s.ex().QueryRow(
		fmt.Sprintf(`SELECT %s FROM %s WHERE label = ?`, identifier.Quote(attr), identifier.Quote(collection)), label,
	).Scan(&raw)
	if err != nil {
		return value.Value{}, dberr.Newf(dberr.ElementNotFound, collection, "label %q not found: %v", label, err)
	}
	return value.FromScan(raw), nil
}

// ReadVector returns column's vector for every element of collection: the
// outer dimension by id ascending, the inner by vector_index ascending.
func (s *Store) ReadVector(collection, column string) ([][]value.Value, error) {
	if _, err := s.requireTable(collection); err != nil {
		return nil, err
	}
	table := schema.VectorTableName(collection, column)
	col, err := s.companionValueColumn(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.ex().Query(fmt.Sprintf(
		`SELECT id, %s FROM %s ORDER BY id ASC, vector_index ASC`, identifier.Quote(col.Name), identifier.Quote(table)))
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, table, "reading vector %q: %v", column, err)
	}
	defer rows.Close()

	var out [][]value.Value
	var lastID int64 = -1
	for rows.Next() {
		var id int64
		var raw any
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, dberr.Newf(dberr.SqlError, table, "scanning vector %q: %v", column, err)
		}
		if id != lastID {
			out = append(out, nil)
			lastID = id
		}
		out[len(out)-1] = append(out[len(out)-1], value.FromScan(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Newf(dberr.SqlError, table, "reading vector %q: %v", column, err)
	}
	return out, nil
}

// ReadVectorByLabel returns column's vector for label's element, ordered
// by vector_index ascending.
func (s *Store) ReadVectorByLabel(collection, column, label string) ([]value.Value, error) {
	if _, err := s.requireTable(collection); err != nil {
		return nil, err
	}
	id, err := s.lookupIDByLabel(collection, label)
	if err != nil {
		return nil, err
	}
	table := schema.VectorTableName(collection, column)
	col, err := s.companionValueColumn(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.ex().Query(fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = ? ORDER BY vector_index ASC`, identifier.Quote(col.Name), identifier.Quote(table)), id)
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, table, "reading vector %q: %v", column, err)
	}
	defer rows.Close()

	var out []value.Value
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, dberr.Newf(dberr.SqlError, table, "scanning vector %q: %v", column, err)
		}
		out = append(out, value.FromScan(raw))
	}
	return out, rows.Err()
}

// ReadSet returns column's set for every element of collection; inner
// order is unspecified, since set storage has no ordering column.
func (s *Store) ReadSet(collection, column string) ([][]value.Value, error) {
	if _, err := s.requireTable(collection); err != nil {
		return nil, err
	}
	table := schema.SetTableName(collection, column)
	col, err := s.companionValueColumn(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.ex().Query(fmt.Sprintf(
		`SELECT id, %s FROM %s ORDER BY id ASC`, identifier.Quote(col.Name), identifier.Quote(table)))
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, table, "reading set %q: %v", column, err)
	}
	defer rows.Close()

	var out [][]value.Value
	var lastID int64 = -1
	for rows.Next() {
		var id int64
		var raw any
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, dberr.Newf(dberr.SqlError, table, "scanning set %q: %v", column, err)
		}
		if id != lastID {
			out = append(out, nil)
			lastID = id
		}
		out[len(out)-1] = append(out[len(out)-1], value.FromScan(raw))
	}
	return out, rows.Err()
}

// AttributeValue is one (name, Value) pair, as returned by the
// read_element_* introspection family.
type AttributeValue struct {
	Name  string
	Value value.Value
}

// ReadElementScalarAttributes returns every scalar column of collection's
// main table except id, for the element identified by id.
func (s *Store) ReadElementScalarAttributes(collection string, id int64) ([]AttributeValue, error) {
	tbl, err := s.requireTable(collection)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, c := range tbl.Columns {
		if c.Name == "id" {
			continue
		}
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = identifier.Quote(n)
	}

	cols := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range cols {
		ptrs[i] = &cols[i]
	}

	err = s.ex().QueryRow(
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, joinQuoted(quoted), identifier.Quote(collection)), id,
	).Scan(ptrs...)
	if err != nil {
		return nil, dberr.Newf(dberr.ElementNotFound, collection, "id %d not found: %v", id, err)
	}

	out := make([]AttributeValue, len(names))
	for i, n := range names {
		out[i] = AttributeValue{Name: n, Value: value.FromScan(cols[i])}
	}
	return out, nil
}

func joinQuoted(quoted []string) string {
	out := quoted[0]
	for _, q := range quoted[1:] {
		out += ", " + q
	}
	return out
}

// ReadElementVectorGroup returns every value column of collection's
// C_vector_group, each materialised in vector_index order, for id.
func (s *Store) ReadElementVectorGroup(collection, group string, id int64) ([]AttributeValue, error) {
	return s.readElementCompanionGroup(schema.VectorTableName(collection, group), id, "vector_index ASC")
}

// ReadElementSetGroup is the set analogue of ReadElementVectorGroup,
// unordered.
func (s *Store) ReadElementSetGroup(collection, group string, id int64) ([]AttributeValue, error) {
	return s.readElementCompanionGroup(schema.SetTableName(collection, group), id, "id ASC")
}

func (s *Store) readElementCompanionGroup(table string, id int64, order string) ([]AttributeValue, error) {
	tbl, ok := s.model.Table(table)
	if !ok {
		return nil, dberr.Newf(dberr.AttributeNotFound, table, "companion table %q not found", table)
	}
	valueCols := tbl.ValueColumns()
	if len(valueCols) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(valueCols))
	for i, c := range valueCols {
		quoted[i] = identifier.Quote(c.Name)
	}

	rows, err := s.ex().Query(
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? ORDER BY %s`, joinQuoted(quoted), identifier.Quote(table), order), id)
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, table, "reading companion group: %v", err)
	}
	defer rows.Close()

	var out []AttributeValue
	for rows.Next() {
		cells := make([]any, len(valueCols))
		ptrs := make([]any, len(valueCols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dberr.Newf(dberr.SqlError, table, "scanning companion group: %v", err)
		}
		for i, c := range valueCols {
			out = append(out, AttributeValue{Name: c.Name, Value: value.FromScan(cells[i])})
		}
	}
	return out, rows.Err()
}

// ReadElementTimeSeriesGroup returns every row of C_time_series_group
// belonging to id, ordered lexicographically on dimensionKeys. Each row
// is returned as name→Value pairs including the dimension columns.
func (s *Store) ReadElementTimeSeriesGroup(collection, group string, id int64, dimensionKeys []string) ([][]AttributeValue, error) {
	table := schema.TimeSeriesTableName(collection, group)
	tbl, ok := s.model.Table(table)
	if !ok {
		return nil, dberr.Newf(dberr.AttributeNotFound, table, "time series table %q not found", table)
	}

	var names []string
	for _, c := range tbl.Columns {
		if c.Name == "id" {
			continue
		}
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = identifier.Quote(n)
	}

	orderBy := "id ASC"
	if len(dimensionKeys) > 0 {
		orderQuoted := make([]string, len(dimensionKeys))
		for i, k := range dimensionKeys {
			orderQuoted[i] = identifier.Quote(k)
		}
		orderBy = joinQuoted(orderQuoted) + " ASC"
	}

	rows, err := s.ex().Query(
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? ORDER BY %s`, joinQuoted(quoted), identifier.Quote(table), orderBy), id)
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, table, "reading time series group: %v", err)
	}
	defer rows.Close()

	var out [][]AttributeValue
	for rows.Next() {
		cells := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dberr.Newf(dberr.SqlError, table, "scanning time series group: %v", err)
		}
		row := make([]AttributeValue, len(names))
		for i, n := range names {
			row[i] = AttributeValue{Name: n, Value: value.FromScan(cells[i])}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetCollections lists every main-table collection name.
func (s *Store) GetCollections() []string { return s.model.Collections() }

// GetElementIDs returns every id in collection, ascending.
func (s *Store) GetElementIDs(collection string) ([]int64, error) {
	if _, err := s.requireTable(collection); err != nil {
		return nil, err
	}
	rows, err := s.ex().Query(fmt.Sprintf(`SELECT id FROM %s ORDER BY id ASC`, identifier.Quote(collection)))
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, collection, "listing element ids: %v", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Newf(dberr.SqlError, collection, "scanning element id: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetElementID resolves label to its id.
func (s *Store) GetElementID(collection, label string) (int64, error) {
	if _, err := s.requireTable(collection); err != nil {
		return 0, err
	}
	return s.lookupIDByLabel(collection, label)
}

// GetVectorGroups, GetSetGroups and GetTimeSeriesGroups list the group
// names of collection's companions of each kind.
func (s *Store) GetVectorGroups(collection string) []string {
	return s.model.GroupsOfKind(collection, schema.VectorCompanion)
}

func (s *Store) GetSetGroups(collection string) []string {
	return s.model.GroupsOfKind(collection, schema.SetCompanion)
}

func (s *Store) GetTimeSeriesGroups(collection string) []string {
	return s.model.GroupsOfKind(collection, schema.TimeSeriesCompanion)
}

// IsScalarColumn, IsVectorColumn and IsSetColumn classify an attribute
// name against collection's main table and companions.
func (s *Store) IsScalarColumn(collection, column string) bool {
	tbl, ok := s.model.Table(collection)
	if !ok {
		return false
	}
	_, ok = tbl.Column(column)
	return ok
}

func (s *Store) IsVectorColumn(collection, column string) bool {
	_, ok := s.model.Table(schema.VectorTableName(collection, column))
	return ok
}

func (s *Store) IsSetColumn(collection, column string) bool {
	_, ok := s.model.Table(schema.SetTableName(collection, column))
	return ok
}
