package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCompanionName(t *testing.T) {
	cases := []struct {
		name       string
		wantParent string
		wantGroup  string
		wantKind   CompanionKind
		wantOK     bool
	}{
		{"Plant_vector_costs", "Plant", "costs", VectorCompanion, true},
		{"Plant_set_tags", "Plant", "tags", SetCompanion, true},
		{"Plant_time_series_output", "Plant", "output", TimeSeriesCompanion, true},
		{"Plant_files", "Plant", "", FilesCompanion, true},
		{"Plant", "", "", Main, false},
		{"Configuration", "", "", Main, false},
	}
	for _, c := range cases {
		parent, group, kind, ok := ParseCompanionName(c.name)
		assert.Equal(t, c.wantParent, parent, c.name)
		assert.Equal(t, c.wantGroup, group, c.name)
		assert.Equal(t, c.wantKind, kind, c.name)
		assert.Equal(t, c.wantOK, ok, c.name)
	}
}

func TestIsExemptFromLabelInvariant(t *testing.T) {
	assert.True(t, IsExemptFromLabelInvariant("Plant_vector_costs"))
	assert.True(t, IsExemptFromLabelInvariant("Plant_files"))
	assert.True(t, IsExemptFromLabelInvariant("configuration"))
	assert.False(t, IsExemptFromLabelInvariant("Plant"))
}

func TestModelValueColumnsExcludesStructuralColumns(t *testing.T) {
	tbl := &Table{
		Name: "Plant_vector_costs",
		Columns: []Column{
			{Name: "id", Type: Integer},
			{Name: "vector_index", Type: Integer},
			{Name: "cost", Type: Real},
		},
	}
	cols := tbl.ValueColumns()
	assert.Len(t, cols, 1)
	assert.Equal(t, "cost", cols[0].Name)
}

func TestModelCollectionsOnlyListsMainTables(t *testing.T) {
	m := NewModel()
	m.AddTable(&Table{Name: "Plant", Kind: Main})
	m.AddTable(&Table{Name: "Plant_vector_costs", Kind: VectorCompanion, Parent: "Plant", Group: "costs"})

	assert.Equal(t, []string{"Plant"}, m.Collections())
	assert.Equal(t, []string{"costs"}, m.GroupsOfKind("Plant", VectorCompanion))
}

func TestNamingConventionHelpers(t *testing.T) {
	assert.Equal(t, "Plant_vector_costs", VectorTableName("Plant", "costs"))
	assert.Equal(t, "Plant_set_tags", SetTableName("Plant", "tags"))
	assert.Equal(t, "Plant_time_series_output", TimeSeriesTableName("Plant", "output"))
	assert.Equal(t, "Plant_files", FilesTableName("Plant"))
}
