// Package schemavalidate implements the Schema Validator: a shape checker
// (not a full SQL parser) that turns DDL text into a populated
// pkg/schema.Model or rejects it with the first structural invariant it
// violates. Statement splitting and entry tokenization are a small
// hand-written state machine over the character stream; regexes are
// reserved for FK-action matching and the companion-suffix test.
package schemavalidate

import (
	"regexp"
	"strings"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/schema"
)

// Validate parses ddl and returns a populated Model, or the first
// structural invariant violation as a *dberr.Error with Kind InvalidSchema
// and Context naming the offending table; the offending column, where
// relevant, is named in the message.
func Validate(ddl string) (*schema.Model, error) {
	statements := SplitStatements(ddl)

	model := schema.NewModel()
	var tableOrder []*schema.Table

	for _, stmt := range statements {
		name, body, ok := extractCreateTable(stmt)
		if !ok {
			continue
		}
		tbl, err := parseTable(name, body)
		if err != nil {
			return nil, err
		}
		model.AddTable(tbl)
		tableOrder = append(tableOrder, tbl)
	}

	for _, tbl := range tableOrder {
		if err := checkInvariants(model, tbl); err != nil {
			return nil, err
		}
	}
	if err := checkSiblingDisjointness(model); err != nil {
		return nil, err
	}

	return model, nil
}

// --- statement splitting -------------------------------------------------

// SplitStatements splits text on ';' while respecting single- and
// double-quoted literals (backslash-escaped quotes do not terminate the
// literal) and parenthesis nesting (a ';' inside a CHECK(...) body, while
// unusual, must not split the statement).
func SplitStatements(text string) []string {
	var statements []string
	var cur strings.Builder

	depth := 0
	var quote byte
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		cur.WriteByte(c)

		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				statements = append(statements, strings.TrimSpace(cur.String()[:cur.Len()-1]))
				cur.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}

// --- CREATE TABLE extraction ---------------------------------------------

var createTableRe = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?["'` + "`" + `]?([A-Za-z_][A-Za-z0-9_]*)["'` + "`" + `]?\s*\(`)

// extractCreateTable finds "CREATE TABLE name ( body )" and returns name
// and the unparsed body between the matching outer parens.
func extractCreateTable(stmt string) (name, body string, ok bool) {
	m := createTableRe.FindStringSubmatchIndex(stmt)
	if m == nil {
		return "", "", false
	}
	name = stmt[m[2]:m[3]]
	openParen := m[1] - 1 // the '(' the regex consumed last

	depth := 0
	var quote byte
	escaped := false
	start := openParen + 1

	for i := openParen; i < len(stmt); i++ {
		c := stmt[i]
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return name, stmt[start:i], true
			}
		}
	}
	return "", "", false
}

// --- entry splitting and classification ----------------------------------

// splitTopLevel splits body on commas that are not nested inside
// parentheses or quoted literals, so that "CHECK(a > 0, b < 1)" is not
// split into two entries.
func splitTopLevel(body string) []string {
	var entries []string
	var cur strings.Builder

	depth := 0
	var quote byte
	escaped := false

	for i := 0; i < len(body); i++ {
		c := body[i]

		if quote != 0 {
			cur.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
			cur.WriteByte(c)
		case '(':
			depth++
			cur.WriteByte(c)
		case ')':
			depth--
			cur.WriteByte(c)
		case ',':
			if depth == 0 {
				entries = append(entries, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
			cur.WriteByte(c)
		default:
			cur.WriteByte(c)
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		entries = append(entries, rest)
	}
	return entries
}

var constraintKeywords = []string{"FOREIGN KEY", "PRIMARY KEY", "UNIQUE", "CHECK", "CONSTRAINT"}

func isTableConstraint(entry string) bool {
	upper := strings.ToUpper(strings.TrimSpace(entry))
	for _, kw := range constraintKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// parseColumnDef extracts the column name (first whitespace-delimited
// token, lower-cased) and its type token (the second token, if present).
func parseColumnDef(entry string) schema.Column {
	entry = strings.TrimSpace(entry)
	// Strip a surrounding identifier quote, if any.
	entry = strings.Trim(entry, "`\"")

	fields := strings.Fields(entry)
	if len(fields) == 0 {
		return schema.Column{}
	}
	name := strings.ToLower(strings.Trim(fields[0], "`\""))
	raw := ""
	if len(fields) > 1 {
		raw = fields[1]
	}
	return schema.Column{Name: name, Type: schema.ColumnTypeFromString(raw), Raw: raw}
}

// --- FK action parsing -----------------------------------------------------

// fkActionRe matches "FOREIGN KEY (col) REFERENCES table(refcol) [ON DELETE
// action] [ON UPDATE action]" case-insensitively. The action vocabulary is
// {CASCADE, SET NULL, SET DEFAULT, RESTRICT, NO ACTION}; whitespace inside
// the multi-word actions is normalised before comparison by
// normalizeAction.
var fkActionRe = regexp.MustCompile(`(?is)FOREIGN\s+KEY\s*\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)\s*REFERENCES\s+["'` + "`" + `]?([A-Za-z_][A-Za-z0-9_]*)["'` + "`" + `]?\s*\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)` +
	`(?:\s*ON\s+DELETE\s+(CASCADE|SET\s+NULL|SET\s+DEFAULT|RESTRICT|NO\s+ACTION))?` +
	`(?:\s*ON\s+UPDATE\s+(CASCADE|SET\s+NULL|SET\s+DEFAULT|RESTRICT|NO\s+ACTION))?`)

func normalizeAction(raw string) schema.ForeignKeyAction {
	if raw == "" {
		return ""
	}
	fields := strings.Fields(raw)
	return schema.ForeignKeyAction(strings.ToUpper(strings.Join(fields, " ")))
}

func parseForeignKey(entry string) (schema.ForeignKey, bool) {
	m := fkActionRe.FindStringSubmatch(entry)
	if m == nil {
		return schema.ForeignKey{}, false
	}
	return schema.ForeignKey{
		Column:    m[1],
		RefTable:  m[2],
		RefColumn: m[3],
		OnDelete:  normalizeAction(m[4]),
		OnUpdate:  normalizeAction(m[5]),
	}, true
}

// --- table parsing ---------------------------------------------------------

func parseTable(name, body string) (*schema.Table, error) {
	entries := splitTopLevel(body)

	tbl := &schema.Table{Name: name}
	parent, group, kind, ok := schema.ParseCompanionName(name)
	if ok {
		tbl.Kind = kind
		tbl.Parent = parent
		tbl.Group = group
	}

	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if isTableConstraint(entry) {
			if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(entry)), "FOREIGN KEY") {
				fk, ok := parseForeignKey(entry)
				if !ok {
					return nil, dberr.Newf(dberr.InvalidSchema, name, "unparseable FOREIGN KEY clause: %q", entry)
				}
				tbl.ForeignKeys = append(tbl.ForeignKeys, fk)
			}
			continue
		}
		tbl.Columns = append(tbl.Columns, parseColumnDef(entry))
	}

	return tbl, nil
}

// --- invariant checks -------------------------------------------------------

func checkInvariants(model *schema.Model, tbl *schema.Table) error {
	// Invariant 1: every main table has a label column, except exempt tables.
	if tbl.Kind == schema.Main && !schema.IsExemptFromLabelInvariant(tbl.Name) {
		if _, ok := tbl.Column("label"); !ok {
			return dberr.Newf(dberr.InvalidSchema, tbl.Name, "main table %q is missing a required 'label' column", tbl.Name)
		}
	}

	// Invariant 2: every *_vector_* table has a vector_index INTEGER column.
	if tbl.Kind == schema.VectorCompanion {
		col, ok := tbl.Column("vector_index")
		if !ok {
			return dberr.Newf(dberr.InvalidSchema, tbl.Name, "vector table %q is missing a 'vector_index' column", tbl.Name)
		}
		if col.Type != schema.Integer {
			return dberr.Newf(dberr.InvalidSchema, tbl.Name, "vector table %q's 'vector_index' column must be INTEGER", tbl.Name)
		}
	}

	// Invariant 3: no value-column name appears in both a main table and
	// any of its companions.
	if (tbl.Kind == schema.VectorCompanion || tbl.Kind == schema.SetCompanion || tbl.Kind == schema.TimeSeriesCompanion) && tbl.Parent != "" {
		if parentTbl, ok := model.Table(tbl.Parent); ok {
			parentCols := make(map[string]bool)
			for _, c := range parentTbl.ValueColumns() {
				parentCols[c.Name] = true
			}
			for _, c := range tbl.ValueColumns() {
				if parentCols[c.Name] {
					return dberr.Newf(dberr.InvalidSchema, tbl.Name,
						"column %q appears in both main table %q and companion %q", c.Name, tbl.Parent, tbl.Name)
				}
			}
		}
	}

	// Invariant 4: ON DELETE CASCADE implies ON UPDATE CASCADE.
	for _, fk := range tbl.ForeignKeys {
		if fk.OnDelete == schema.ActionCascade && fk.OnUpdate != schema.ActionCascade {
			return dberr.Newf(dberr.InvalidSchema, tbl.Name,
				"table %q: FOREIGN KEY(%s) has ON DELETE CASCADE but ON UPDATE %s; CASCADE delete requires CASCADE update",
				tbl.Name, fk.Column, fk.OnUpdate)
		}
	}

	return nil
}

// checkSiblingDisjointness enforces that for every table X_(vector|set)_Y
// with a parent table X, the value-column sets (excluding id, vector_index,
// label) of sibling companions of X must be disjoint from one another.
func checkSiblingDisjointness(model *schema.Model) error {
	type owner struct {
		table  string
		column string
	}
	byParent := make(map[string][]*schema.Table)
	for _, name := range model.TableNames() {
		tbl, _ := model.Table(name)
		if tbl.Kind == schema.VectorCompanion || tbl.Kind == schema.SetCompanion {
			byParent[tbl.Parent] = append(byParent[tbl.Parent], tbl)
		}
	}

	for parent, companions := range byParent {
		seen := make(map[string]owner)
		for _, tbl := range companions {
			for _, col := range tbl.ValueColumns() {
				if prev, ok := seen[col.Name]; ok && prev.table != tbl.Name {
					return dberr.Newf(dberr.InvalidSchema, tbl.Name,
						"duplicate column %q across sibling companions %q and %q of collection %q",
						col.Name, prev.table, tbl.Name, parent)
				}
				seen[col.Name] = owner{table: tbl.Name, column: col.Name}
			}
		}
	}
	return nil
}
