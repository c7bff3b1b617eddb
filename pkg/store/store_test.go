package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/element"
	"github.com/dukaforge/silo/pkg/value"
)

const plantDDL = `
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
	CREATE TABLE Plant_time_series_output (
		id INTEGER,
		date_time TEXT,
		value REAL,
		FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE
	);
`

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := FromSchema(MemoryPath, plantDDL, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateElementRoundTripsScalarAndVector(t *testing.T) {
	s := setupStore(t)

	e := element.New().SetLabel("P1").
		Set("capacity", value.NewReal(50.0)).
		SetVector("costs", []value.Value{value.NewReal(1), value.NewReal(2), value.NewReal(3)})

	id, err := s.CreateElement("Plant", e)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	costs, err := s.ReadVectorByLabel("Plant", "costs", "P1")
	require.NoError(t, err)
	require.Len(t, costs, 3)
	for i, want := range []float64{1, 2, 3} {
		got, ok := costs[i].Real()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestCreateElementRejectsEmptyLabel(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateElement("Plant", element.New())
	require.Error(t, err)
	assert.Equal(t, dberr.EmptyElement, dberr.KindOf(err))
}

func TestCreateElementRejectsDuplicateLabel(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateElement("Plant", element.New().SetLabel("P1"))
	require.NoError(t, err)

	_, err = s.CreateElement("Plant", element.New().SetLabel("P1"))
	require.Error(t, err)
	assert.Equal(t, dberr.DuplicateElement, dberr.KindOf(err))
}

func TestCreateElementRejectsTypeMismatch(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateElement("Plant", element.New().SetLabel("P1").Set("capacity", value.NewText("oops")))
	require.Error(t, err)
	assert.Equal(t, dberr.TypeMismatch, dberr.KindOf(err))
}

func TestCreateElementUnknownCollectionFails(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateElement("Nope", element.New().SetLabel("P1"))
	require.Error(t, err)
	assert.Equal(t, dberr.CollectionNotFound, dberr.KindOf(err))
}

func TestSetDedupesOnWrite(t *testing.T) {
	s := setupStore(t)
	e := element.New().SetLabel("P1").SetSet("tags", []value.Value{value.NewText("a"), value.NewText("a"), value.NewText("b")})
	_, err := s.CreateElement("Plant", e)
	require.NoError(t, err)

	tags, err := s.ReadSet("Plant", "tags")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Len(t, tags[0], 2)
}

func TestEmptyVectorStoresNoCompanionRows(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateElement("Plant", element.New().SetLabel("P1").SetVector("costs", nil))
	require.NoError(t, err)

	costs, err := s.ReadVectorByLabel("Plant", "costs", "P1")
	require.NoError(t, err)
	assert.Empty(t, costs)
}

func TestDeleteElementCascadesToCompanions(t *testing.T) {
	s := setupStore(t)
	e := element.New().SetLabel("P1").SetVector("costs", []value.Value{value.NewReal(1)})
	_, err := s.CreateElement("Plant", e)
	require.NoError(t, err)

	require.NoError(t, s.DeleteElementByLabel("Plant", "P1"))

	_, err = s.GetElementID("Plant", "P1")
	require.Error(t, err)
	assert.Equal(t, dberr.ElementNotFound, dberr.KindOf(err))

	rows, err := s.Execute(`SELECT COUNT(*) FROM Plant_vector_costs`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows.GetInt(0, 0))
}

func TestUpdateScalarParameter(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateElement("Plant", element.New().SetLabel("P1").Set("capacity", value.NewReal(50.0)))
	require.NoError(t, err)

	require.NoError(t, s.UpdateScalarParameter("Plant", "capacity", "P1", value.NewReal(60.0)))

	got, err := s.ReadScalarByLabel("Plant", "capacity", "P1")
	require.NoError(t, err)
	v, _ := got.Real()
	assert.Equal(t, 60.0, v)
}

func TestTransactionGuardRollsBackOnError(t *testing.T) {
	s := setupStore(t)

	g, err := Begin(s)
	require.NoError(t, err)

	_, err = s.CreateElement("Plant", element.New().SetLabel("P1"))
	require.NoError(t, err)

	require.NoError(t, g.Rollback())

	_, err = s.GetElementID("Plant", "P1")
	require.Error(t, err)
	assert.Equal(t, dberr.ElementNotFound, dberr.KindOf(err))
}

func TestTransactionGuardDoubleCommitIsInternalError(t *testing.T) {
	s := setupStore(t)
	g, err := Begin(s)
	require.NoError(t, err)
	require.NoError(t, g.Commit())

	err = g.Commit()
	require.Error(t, err)
	assert.Equal(t, dberr.InternalError, dberr.KindOf(err))
}

func TestSavepointRollbackToUndoesOnlyPostSavepointChanges(t *testing.T) {
	s := setupStore(t)
	g, err := Begin(s)
	require.NoError(t, err)
	defer g.Rollback()

	_, err = s.CreateElement("Plant", element.New().SetLabel("P1"))
	require.NoError(t, err)

	sp, err := NewSavepoint(s, "before_p2")
	require.NoError(t, err)

	_, err = s.CreateElement("Plant", element.New().SetLabel("P2"))
	require.NoError(t, err)

	require.NoError(t, sp.RollbackTo())
	require.NoError(t, g.Commit())

	_, err = s.GetElementID("Plant", "P1")
	require.NoError(t, err)
	_, err = s.GetElementID("Plant", "P2")
	require.Error(t, err)
}

func TestBatchCreateElementsStopOnErrorRollsBackWholeBatch(t *testing.T) {
	s := setupStore(t)
	elements := []*element.Element{
		element.New().SetLabel("P1"),
		element.New().SetLabel("P1"), // duplicate, fails
		element.New().SetLabel("P2"),
	}
	opts := DefaultBatchOptions()
	_, err := s.CreateElements("Plant", elements, opts)
	require.Error(t, err)

	_, err = s.GetElementID("Plant", "P1")
	assert.Error(t, err)
}

func TestBatchCreateElementsContinuesOnErrorWhenNotStopping(t *testing.T) {
	s := setupStore(t)
	elements := []*element.Element{
		element.New().SetLabel("P1"),
		element.New(), // empty label, fails
		element.New().SetLabel("P2"),
	}
	opts := BatchOptions{StopOnError: false, SingleTransaction: true}
	result, err := s.CreateElements("Plant", elements, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int{1}, result.FailedIndices)
}

func writeStoreMigrationFile(t *testing.T, root, version, name, sql string) {
	t.Helper()
	dir := filepath.Join(root, version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
}

func TestMigrationMonotonicityViaFromMigrations(t *testing.T) {
	root := t.TempDir()
	writeStoreMigrationFile(t, root, "1", "a.sql", "CREATE TABLE Plant (id INTEGER PRIMARY KEY, label TEXT NOT NULL);")
	writeStoreMigrationFile(t, root, "3", "a.sql", "ALTER TABLE Plant ADD COLUMN capacity REAL;")

	dbPath := filepath.Join(t.TempDir(), "store.db")
	s, err := FromMigrations(dbPath, root, DefaultOptions())
	require.NoError(t, err)

	v, err := s.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	require.NoError(t, s.Close())

	s2, err := FromMigrations(dbPath, root, DefaultOptions())
	require.NoError(t, err)
	defer s2.Close()

	v2, err := s2.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, v, v2)
}
