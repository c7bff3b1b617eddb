package element

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukaforge/silo/pkg/value"
)

func TestBuilderFluentChain(t *testing.T) {
	e := New().
		SetLabel("P1").
		Set("capacity", value.NewReal(50.0)).
		SetVector("costs", []value.Value{value.NewReal(1), value.NewReal(2), value.NewReal(3)}).
		SetSet("tags", []value.Value{value.NewText("a"), value.NewText("a"), value.NewText("b")})

	assert.Equal(t, "P1", e.Label())
	assert.Len(t, e.Scalars(), 2)
	assert.Len(t, e.Vectors()["costs"], 3)
	assert.Len(t, e.Sets()["tags"], 3) // dedup happens at the store, not the builder
}

func TestClearResetsAllContainers(t *testing.T) {
	e := New().SetLabel("P1").SetVector("v", []value.Value{value.NewInt64(1)})
	e.Clear()

	assert.Empty(t, e.Scalars())
	assert.Empty(t, e.Vectors())
	assert.Equal(t, "", e.Label())
}

func TestTimeSeriesLenDetectsMismatch(t *testing.T) {
	ts := TimeSeries{Columns: map[string][]value.Value{
		"date_time": {value.NewText("2026-01-01"), value.NewText("2026-01-02")},
		"stage":     {value.NewText("a")},
	}}
	assert.Equal(t, -1, ts.Len())

	ts2 := TimeSeries{Columns: map[string][]value.Value{
		"date_time": {value.NewText("2026-01-01"), value.NewText("2026-01-02")},
		"value":     {value.NewReal(1), value.NewReal(2)},
	}}
	assert.Equal(t, 2, ts2.Len())
}
