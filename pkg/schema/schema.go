// Package schema holds the in-memory description of tables, columns,
// types, and the collection/vector/set/time-series naming convention that
// the rest of silo builds on. It is populated either by
// pkg/schemavalidate (parsing DDL text) or directly by callers that
// already have a validated shape.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the declared relational type of a column, narrowed to the
// three variants the store cares about for value widening. Any other
// declared type token maps to Text (see ColumnTypeFromString).
type ColumnType int

const (
	Integer ColumnType = iota
	Real
	Text
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

// ColumnTypeFromString maps a SQL type token to a ColumnType. Unknown
// tokens default to Text, since the validator's shape-check does not
// reject arbitrary affinity names (e.g. VARCHAR(32)) as long as the
// structural invariants hold; only the tokens listed below map to Integer
// or Real.
func ColumnTypeFromString(raw string) ColumnType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "INTEGER", "INT":
		return Integer
	case "REAL", "FLOAT", "DOUBLE":
		return Real
	default:
		return Text
	}
}

// Column is one column definition inside a table.
type Column struct {
	Name string
	Type ColumnType
	Raw  string // the original type token, for diagnostics
}

// ForeignKeyAction is one of the five actions the validator's regex
// recognizes.
type ForeignKeyAction string

const (
	ActionCascade    ForeignKeyAction = "CASCADE"
	ActionSetNull    ForeignKeyAction = "SET NULL"
	ActionSetDefault ForeignKeyAction = "SET DEFAULT"
	ActionRestrict   ForeignKeyAction = "RESTRICT"
	ActionNoAction   ForeignKeyAction = "NO ACTION"
)

// ForeignKey describes one FOREIGN KEY(...) REFERENCES ... clause.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  ForeignKeyAction
	OnUpdate  ForeignKeyAction
}

// CompanionKind classifies a table by the naming convention's suffix.
type CompanionKind int

const (
	Main CompanionKind = iota
	VectorCompanion
	SetCompanion
	TimeSeriesCompanion
	FilesCompanion
)

// Table is one physical table: its columns in declared order and any
// foreign keys, plus the companion classification derived from its name.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey

	Kind   CompanionKind
	Parent string // collection name, empty for Main
	Group  string // attribute-family name, empty for Main and FilesCompanion
}

// ColumnIndex returns the position of a column by name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ValueColumns returns columns excluding id, vector_index and label — the
// "payload" columns used for duplicate-attribute checks and vector
// element-type resolution.
func (t *Table) ValueColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		switch c.Name {
		case "id", "vector_index", "label":
			continue
		}
		out = append(out, c)
	}
	return out
}

// Model is the full in-memory schema: every table keyed by name, plus the
// insertion order DDL statements appeared in (stable iteration for diff
// and introspection output).
type Model struct {
	tables map[string]*Table
	order  []string
}

func NewModel() *Model {
	return &Model{tables: make(map[string]*Table)}
}

// AddTable registers a table, overwriting any previous definition with the
// same name (the validator calls this once per CREATE TABLE statement, so
// overwriting only happens for malformed duplicate DDL).
func (m *Model) AddTable(t *Table) {
	if _, exists := m.tables[t.Name]; !exists {
		m.order = append(m.order, t.Name)
	}
	m.tables[t.Name] = t
}

func (m *Model) Table(name string) (*Table, bool) {
	t, ok := m.tables[name]
	return t, ok
}

// TableNames returns every table name in declaration order.
func (m *Model) TableNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Collections returns the names of every Main table — the user-visible
// collection names.
func (m *Model) Collections() []string {
	var out []string
	for _, name := range m.order {
		if t := m.tables[name]; t.Kind == Main {
			out = append(out, name)
		}
	}
	return out
}

// GroupsOfKind returns the group names of every companion table of the
// given kind belonging to collection.
func (m *Model) GroupsOfKind(collection string, kind CompanionKind) []string {
	var out []string
	for _, name := range m.order {
		t := m.tables[name]
		if t.Kind == kind && t.Parent == collection {
			out = append(out, t.Group)
		}
	}
	return out
}

// ColumnType looks up the declared type of a column on a table.
func (m *Model) ColumnType(table, column string) (ColumnType, bool) {
	t, ok := m.tables[table]
	if !ok {
		return 0, false
	}
	c, ok := t.Column(column)
	if !ok {
		return 0, false
	}
	return c.Type, true
}

// Naming convention helpers for companion table names.

func VectorTableName(collection, group string) string {
	return fmt.Sprintf("%s_vector_%s", collection, group)
}

func SetTableName(collection, group string) string {
	return fmt.Sprintf("%s_set_%s", collection, group)
}

func TimeSeriesTableName(collection, group string) string {
	return fmt.Sprintf("%s_time_series_%s", collection, group)
}

func FilesTableName(collection string) string {
	return fmt.Sprintf("%s_files", collection)
}

// ParseCompanionName inspects a table name against the naming convention
// and reports the parent collection, group and kind it implies. A name
// that matches no suffix is reported as Main with ok=false for the
// collection-derivation callers that only want companions.
func ParseCompanionName(name string) (parent, group string, kind CompanionKind, ok bool) {
	if strings.EqualFold(name, "configuration") {
		return "", "", Main, false
	}
	if strings.HasSuffix(name, "_files") {
		parent = strings.TrimSuffix(name, "_files")
		return parent, "", FilesCompanion, true
	}
	for _, suffix := range []struct {
		marker string
		kind   CompanionKind
	}{
		{"_vector_", VectorCompanion},
		{"_set_", SetCompanion},
		{"_time_series_", TimeSeriesCompanion},
	} {
		if idx := strings.Index(name, suffix.marker); idx > 0 {
			return name[:idx], name[idx+len(suffix.marker):], suffix.kind, true
		}
	}
	return "", "", Main, false
}

// IsExemptFromLabelInvariant reports whether a table name is exempt from
// the every-main-table-has-a-label-column rule: companions, Configuration,
// and *_files tables.
func IsExemptFromLabelInvariant(name string) bool {
	_, _, _, ok := ParseCompanionName(name)
	if ok {
		return true
	}
	return strings.EqualFold(name, "configuration")
}
