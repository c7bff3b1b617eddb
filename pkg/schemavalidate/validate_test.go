package schemavalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/schema"
)

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	ddl := `
		CREATE TABLE Plant (
			id INTEGER PRIMARY KEY,
			label TEXT NOT NULL,
			capacity REAL
		);
		CREATE TABLE Plant_vector_costs (
			id INTEGER,
			vector_index INTEGER,
			cost REAL,
			FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE
		);
		CREATE TABLE Plant_set_tags (
			id INTEGER,
			tag TEXT,
			FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE
		);
	`
	model, err := Validate(ddl)
	require.NoError(t, err)

	assert.Equal(t, []string{"Plant"}, model.Collections())
	assert.Equal(t, []string{"costs"}, model.GroupsOfKind("Plant", schema.VectorCompanion))
	assert.Equal(t, []string{"tags"}, model.GroupsOfKind("Plant", schema.SetCompanion))
}

func TestValidateRejectsMissingLabelColumn(t *testing.T) {
	ddl := `CREATE TABLE Plant (id INTEGER PRIMARY KEY, capacity REAL);`
	_, err := Validate(ddl)
	require.Error(t, err)
	assert.Equal(t, dberr.InvalidSchema, dberr.KindOf(err))
}

func TestValidateRejectsVectorTableMissingVectorIndex(t *testing.T) {
	ddl := `
		CREATE TABLE Plant (id INTEGER PRIMARY KEY, label TEXT);
		CREATE TABLE Plant_vector_costs (id INTEGER, cost REAL);
	`
	_, err := Validate(ddl)
	require.Error(t, err)
	assert.Equal(t, dberr.InvalidSchema, dberr.KindOf(err))
}

func TestValidateRejectsColumnSharedBetweenMainAndCompanion(t *testing.T) {
	ddl := `
		CREATE TABLE Plant (id INTEGER PRIMARY KEY, label TEXT, cost REAL);
		CREATE TABLE Plant_vector_costs (id INTEGER, vector_index INTEGER, cost REAL);
	`
	_, err := Validate(ddl)
	require.Error(t, err)
	assert.Equal(t, dberr.InvalidSchema, dberr.KindOf(err))
}

func TestValidateRejectsDuplicateColumnAcrossSiblingCompanions(t *testing.T) {
	ddl := `
		CREATE TABLE Plant (id INTEGER PRIMARY KEY, label TEXT);
		CREATE TABLE Plant_vector_costs (id INTEGER, vector_index INTEGER, amount REAL);
		CREATE TABLE Plant_vector_outputs (id INTEGER, vector_index INTEGER, amount REAL);
	`
	_, err := Validate(ddl)
	require.Error(t, err)
	assert.Equal(t, dberr.InvalidSchema, dberr.KindOf(err))
}

func TestValidateRejectsCascadeDeleteWithoutCascadeUpdate(t *testing.T) {
	ddl := `
		CREATE TABLE Plant (id INTEGER PRIMARY KEY, label TEXT);
		CREATE TABLE Plant_vector_costs (
			id INTEGER,
			vector_index INTEGER,
			cost REAL,
			FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE RESTRICT
		);
	`
	_, err := Validate(ddl)
	require.Error(t, err)
	assert.Equal(t, dberr.InvalidSchema, dberr.KindOf(err))
}

func TestValidateExemptsConfigurationAndFilesTables(t *testing.T) {
	ddl := `
		CREATE TABLE Configuration (id INTEGER PRIMARY KEY, key TEXT, value TEXT);
		CREATE TABLE Plant (id INTEGER PRIMARY KEY, label TEXT);
		CREATE TABLE Plant_files (id INTEGER, path TEXT, FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE);
	`
	model, err := Validate(ddl)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Configuration", "Plant"}, model.Collections())
}

func TestSplitStatementsIgnoresSemicolonsInsideQuotedLiterals(t *testing.T) {
	stmts := SplitStatements(`CREATE TABLE T (id INTEGER, note TEXT DEFAULT 'a;b'); CREATE TABLE U (id INTEGER);`)
	require.Len(t, stmts, 2)
}

func TestSplitTopLevelIgnoresCommasInsideParens(t *testing.T) {
	entries := splitTopLevel(`id INTEGER, amount REAL CHECK(amount > 0, amount < 100), label TEXT`)
	require.Len(t, entries, 3)
}

func TestParseForeignKeyNormalizesWhitespaceInAction(t *testing.T) {
	fk, ok := parseForeignKey(`FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE SET   NULL ON UPDATE NO  ACTION`)
	require.True(t, ok)
	assert.Equal(t, schema.ForeignKeyAction("SET NULL"), fk.OnDelete)
	assert.Equal(t, schema.ForeignKeyAction("NO ACTION"), fk.OnUpdate)
}
