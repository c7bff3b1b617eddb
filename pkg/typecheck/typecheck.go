// Package typecheck implements the Type Validator: the widening rule that
// decides whether a Value may be written into a column of a declared
// ColumnType.
package typecheck

import (
	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/schema"
	"github.com/dukaforge/silo/pkg/value"
)

// Check reports whether v may be written into a column of type colType.
// Null and Blob are valid for any column type. Int64 only fits Integer.
// Real fits Real or Integer (any Real, whole-valued or not, is accepted
// into an Integer column; the store does not truncate). Text only fits
// Text.
func Check(v value.Value, colType schema.ColumnType) bool {
	switch v.Kind() {
	case value.Null, value.BlobKind:
		return true
	case value.Int64Kind:
		return colType == schema.Integer
	case value.RealKind:
		return colType == schema.Real || colType == schema.Integer
	case value.TextKind:
		return colType == schema.Text
	case value.IntVecKind:
		return colType == schema.Integer
	case value.RealVecKind:
		return colType == schema.Real || colType == schema.Integer
	case value.TextVecKind:
		return colType == schema.Text
	default:
		return false
	}
}

// Validate returns a *dberr.Error with Kind TypeMismatch naming table and
// column if v does not fit colType, or nil if it does.
func Validate(table, column string, v value.Value, colType schema.ColumnType) error {
	if Check(v, colType) {
		return nil
	}
	return dberr.Newf(dberr.TypeMismatch, table,
		"column %q expects %s, got %s for value %s", column, colType, v.Kind(), v)
}

// ValidateElement checks every scalar and vector attribute of an element's
// flattened write set against a table's declared column types. cols maps
// attribute name to its declared type; attributes not present in cols are
// ignored, since the caller is expected to reject unknown attributes
// earlier with its own AttributeNotFound check.
func ValidateElement(table string, attrs map[string]value.Value, cols map[string]schema.ColumnType) error {
	for name, v := range attrs {
		colType, ok := cols[name]
		if !ok {
			continue
		}
		if err := Validate(table, name, v, colType); err != nil {
			return err
		}
	}
	return nil
}
