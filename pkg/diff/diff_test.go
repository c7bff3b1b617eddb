package diff

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/dukaforge/silo/pkg/element"
	"github.com/dukaforge/silo/pkg/store"
	"github.com/dukaforge/silo/pkg/value"
)

const plantDDL = `
	CREATE TABLE Plant (
		id INTEGER PRIMARY KEY,
		label TEXT NOT NULL,
		capacity REAL
	);
`

func newSeededStore(t *testing.T, capacity float64) *store.Store {
	t.Helper()
	s, err := store.FromSchema(store.MemoryPath, plantDDL, store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.CreateElement("Plant", element.New().SetLabel("P1").Set("capacity", value.NewReal(capacity)))
	require.NoError(t, err)
	return s
}

func TestCompareScalarParametersFindsOneDifferenceLine(t *testing.T) {
	db1 := newSeededStore(t, 50.0)
	db2 := newSeededStore(t, 60.0)

	lines, err := CompareScalarParameters(db1, db2, "Plant")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "scalar_parameter_mismatch", []byte(strings.Join(lines, "\n")+"\n"))
}

func TestCompareDatabasesIsEmptyForIdenticalStores(t *testing.T) {
	db1 := newSeededStore(t, 50.0)
	db2 := newSeededStore(t, 50.0)

	lines, err := CompareDatabases(db1, db2)
	require.NoError(t, err)
	require.Empty(t, lines)
}
