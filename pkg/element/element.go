// Package element implements the Element builder: a plain aggregate with
// fluent mutators over a logical element's scalar map, vector map and
// named time series, with no inheritance or reflection.
package element

import "github.com/dukaforge/silo/pkg/value"

// TimeSeries is a columnar table: a mapping from column name to an ordered
// sequence of equal-length Values, as written into a C_time_series_G
// companion table one cross-section at a time.
type TimeSeries struct {
	Columns map[string][]value.Value
}

// Len returns the row count implied by the time series' columns, or -1 if
// the columns disagree in length (the caller is expected to check this
// before building an Element).
func (ts TimeSeries) Len() int {
	n := -1
	for _, col := range ts.Columns {
		if n == -1 {
			n = len(col)
			continue
		}
		if len(col) != n {
			return -1
		}
	}
	if n == -1 {
		return 0
	}
	return n
}

// Element is a logical entity: a unique label, scalar attributes, ordered
// vector attributes, unordered set attributes and named time series. It
// has no identity of its own until Store.CreateElement assigns an id.
type Element struct {
	scalars    map[string]value.Value
	vectors    map[string][]value.Value
	sets       map[string][]value.Value
	timeSeries map[string]TimeSeries
}

// New returns an empty Element builder.
func New() *Element {
	return &Element{
		scalars:    make(map[string]value.Value),
		vectors:    make(map[string][]value.Value),
		sets:       make(map[string][]value.Value),
		timeSeries: make(map[string]TimeSeries),
	}
}

// Clear resets all four sub-containers (scalars, vectors, sets, time
// series), returning the same instance.
func (e *Element) Clear() *Element {
	e.scalars = make(map[string]value.Value)
	e.vectors = make(map[string][]value.Value)
	e.sets = make(map[string][]value.Value)
	e.timeSeries = make(map[string]TimeSeries)
	return e
}

// SetLabel sets the mandatory label scalar. Equivalent to Set("label", ...).
func (e *Element) SetLabel(label string) *Element {
	return e.Set("label", value.NewText(label))
}

// Label returns the label scalar, or "" if unset.
func (e *Element) Label() string {
	v, ok := e.scalars["label"]
	if !ok {
		return ""
	}
	s, _ := v.Text()
	return s
}

// Set assigns a scalar attribute, overwriting any previous value.
func (e *Element) Set(name string, v value.Value) *Element {
	e.scalars[name] = v
	return e
}

// SetVector assigns an ordered vector attribute.
func (e *Element) SetVector(name string, values []value.Value) *Element {
	e.vectors[name] = values
	return e
}

// SetSet assigns an unordered set attribute. Duplicate values are not
// collapsed here; Store.CreateElement deduplicates on write per spec.
func (e *Element) SetSet(name string, values []value.Value) *Element {
	e.sets[name] = values
	return e
}

// SetTimeSeries assigns a named time-series table.
func (e *Element) SetTimeSeries(group string, ts TimeSeries) *Element {
	e.timeSeries[group] = ts
	return e
}

func (e *Element) Scalars() map[string]value.Value       { return e.scalars }
func (e *Element) Vectors() map[string][]value.Value     { return e.vectors }
func (e *Element) Sets() map[string][]value.Value        { return e.sets }
func (e *Element) TimeSeriesGroups() map[string]TimeSeries { return e.timeSeries }
