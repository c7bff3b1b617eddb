// Package diff implements the Structural Diff: human-readable comparisons
// of two stores' collections, keyed by label. CompareDatabases is the
// canonical equality predicate: two stores are equal iff it returns no
// lines.
package diff

import (
	"fmt"
	"sort"

	"github.com/dukaforge/silo/pkg/schema"
	"github.com/dukaforge/silo/pkg/store"
	"github.com/dukaforge/silo/pkg/value"
)

// CompareScalarParameters reports, for every scalar column of collection,
// one line per element whose value differs (or is present on only one
// side), keyed by label.
func CompareScalarParameters(a, b *store.Store, collection string) ([]string, error) {
	tblA, ok := a.Model().Table(collection)
	if !ok {
		return nil, fmt.Errorf("diff: collection %q not found in first store", collection)
	}
	var lines []string
	for _, col := range tblA.ValueColumns() {
		colLines, err := compareScalarColumn(a, b, collection, col.Name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, colLines...)
	}
	return lines, nil
}

func compareScalarColumn(a, b *store.Store, collection, column string) ([]string, error) {
	labelsA, valuesA, err := labeledScalars(a, collection, column)
	if err != nil {
		return nil, err
	}
	labelsB, valuesB, err := labeledScalars(b, collection, column)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, label := range sortedUnion(labelsA, labelsB) {
		va, inA := valuesA[label]
		vb, inB := valuesB[label]
		switch {
		case inA && !inB:
			lines = append(lines, fmt.Sprintf("%s.%s: %q present only in first store (%s)", collection, column, label, va))
		case !inA && inB:
			lines = append(lines, fmt.Sprintf("%s.%s: %q present only in second store (%s)", collection, column, label, vb))
		case !value.Equal(va, vb):
			lines = append(lines, fmt.Sprintf("%s.%s: %q differs: %s vs %s", collection, column, label, va, vb))
		}
	}
	return lines, nil
}

func labeledScalars(s *store.Store, collection, column string) (map[string]bool, map[string]value.Value, error) {
	ids, err := s.GetElementIDs(collection)
	if err != nil {
		return nil, nil, err
	}
	labels := make(map[string]bool, len(ids))
	values := make(map[string]value.Value, len(ids))
	for _, id := range ids {
		attrs, err := s.ReadElementScalarAttributes(collection, id)
		if err != nil {
			return nil, nil, err
		}
		var label string
		var v value.Value
		found := false
		for _, a := range attrs {
			if a.Name == "label" {
				label, _ = a.Value.Text()
			}
			if a.Name == column {
				v = a.Value
				found = true
			}
		}
		if label == "" || !found {
			continue
		}
		labels[label] = true
		values[label] = v
	}
	return labels, values, nil
}

// CompareVectorParameters compares every vector group of collection.
func CompareVectorParameters(a, b *store.Store, collection string) ([]string, error) {
	var lines []string
	for _, group := range a.Model().GroupsOfKind(collection, schema.VectorCompanion) {
		groupLines, err := compareOrderedGroup(a, b, collection, group)
		if err != nil {
			return nil, err
		}
		lines = append(lines, groupLines...)
	}
	return lines, nil
}

func compareOrderedGroup(a, b *store.Store, collection, group string) ([]string, error) {
	labelsA, err := labelsOf(a, collection)
	if err != nil {
		return nil, err
	}
	labelsB, err := labelsOf(b, collection)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, label := range sortedUnion(setOf(labelsA), setOf(labelsB)) {
		_, inA := labelsA[label]
		_, inB := labelsB[label]
		if !inA || !inB {
			lines = append(lines, fmt.Sprintf("%s_vector_%s: %q present only in %s", collection, group, label, sideName(inA)))
			continue
		}
		va, err := a.ReadVectorByLabel(collection, group, label)
		if err != nil {
			return nil, err
		}
		vb, err := b.ReadVectorByLabel(collection, group, label)
		if err != nil {
			return nil, err
		}
		if !equalOrderedValues(va, vb) {
			lines = append(lines, fmt.Sprintf("%s_vector_%s: %q differs: %v vs %v", collection, group, label, va, vb))
		}
	}
	return lines, nil
}

// CompareSetParameters compares every set group of collection, treating
// each side as an unordered multiset: set storage has no ordering
// column, so insertion order is not a meaningful basis for comparison.
func CompareSetParameters(a, b *store.Store, collection string) ([]string, error) {
	var lines []string
	for _, group := range a.Model().GroupsOfKind(collection, schema.SetCompanion) {
		groupLines, err := compareSetGroup(a, b, collection, group)
		if err != nil {
			return nil, err
		}
		lines = append(lines, groupLines...)
	}
	return lines, nil
}

func compareSetGroup(a, b *store.Store, collection, group string) ([]string, error) {
	labelsA, err := labelsOf(a, collection)
	if err != nil {
		return nil, err
	}
	labelsB, err := labelsOf(b, collection)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, label := range sortedUnion(setOf(labelsA), setOf(labelsB)) {
		_, inA := labelsA[label]
		_, inB := labelsB[label]
		if !inA || !inB {
			lines = append(lines, fmt.Sprintf("%s_set_%s: %q present only in %s", collection, group, label, sideName(inA)))
			continue
		}
		idA := labelsA[label]
		idB := labelsB[label]
		groupA, err := a.ReadElementSetGroup(collection, group, idA)
		if err != nil {
			return nil, err
		}
		groupB, err := b.ReadElementSetGroup(collection, group, idB)
		if err != nil {
			return nil, err
		}
		if !equalMultiset(groupA, groupB) {
			lines = append(lines, fmt.Sprintf("%s_set_%s: %q differs", collection, group, label))
		}
	}
	return lines, nil
}

// CompareTimeSeries compares every time-series group of collection.
func CompareTimeSeries(a, b *store.Store, collection string) ([]string, error) {
	var lines []string
	for _, group := range a.Model().GroupsOfKind(collection, schema.TimeSeriesCompanion) {
		labelsA, err := labelsOf(a, collection)
		if err != nil {
			return nil, err
		}
		labelsB, err := labelsOf(b, collection)
		if err != nil {
			return nil, err
		}
		for _, label := range sortedUnion(setOf(labelsA), setOf(labelsB)) {
			idA, inA := labelsA[label]
			idB, inB := labelsB[label]
			if !inA || !inB {
				lines = append(lines, fmt.Sprintf("%s_time_series_%s: %q present only in %s", collection, group, label, sideName(inA)))
				continue
			}
			rowsA, err := a.ReadElementTimeSeriesGroup(collection, group, idA, []string{"date_time"})
			if err != nil {
				return nil, err
			}
			rowsB, err := b.ReadElementTimeSeriesGroup(collection, group, idB, []string{"date_time"})
			if err != nil {
				return nil, err
			}
			if !equalTimeSeriesRows(rowsA, rowsB) {
				lines = append(lines, fmt.Sprintf("%s_time_series_%s: %q differs", collection, group, label))
			}
		}
	}
	return lines, nil
}

// CompareScalarRelations, CompareVectorRelations and CompareSetRelations
// reuse the scalar/vector/set comparators: relation columns are ordinary
// value columns from the diff's point of view once resolved to ids, so
// the same column-level comparison applies.
func CompareScalarRelations(a, b *store.Store, collection string) ([]string, error) {
	return CompareScalarParameters(a, b, collection)
}

func CompareVectorRelations(a, b *store.Store, collection string) ([]string, error) {
	return CompareVectorParameters(a, b, collection)
}

func CompareSetRelations(a, b *store.Store, collection string) ([]string, error) {
	return CompareSetParameters(a, b, collection)
}

// CompareTimeSeriesFiles compares the file-backed time series table of
// collection, line per (label, parameter) whose path differs.
func CompareTimeSeriesFiles(a, b *store.Store, collection string) ([]string, error) {
	table := schema.FilesTableName(collection)
	if _, ok := a.Model().Table(table); !ok {
		return nil, nil
	}

	rowsA, err := a.Execute(fmt.Sprintf(`SELECT id, parameter, path FROM %q`, table), nil)
	if err != nil {
		return nil, err
	}
	rowsB, err := b.Execute(fmt.Sprintf(`SELECT id, parameter, path FROM %q`, table), nil)
	if err != nil {
		return nil, err
	}

	pathsA, err := filePathsByKey(a, collection, rowsA)
	if err != nil {
		return nil, err
	}
	pathsB, err := filePathsByKey(b, collection, rowsB)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, key := range sortedUnion(setOf2(pathsA), setOf2(pathsB)) {
		pa, inA := pathsA[key]
		pb, inB := pathsB[key]
		switch {
		case inA && !inB:
			lines = append(lines, fmt.Sprintf("%s: %q present only in first store", table, key))
		case !inA && inB:
			lines = append(lines, fmt.Sprintf("%s: %q present only in second store", table, key))
		case pa != pb:
			lines = append(lines, fmt.Sprintf("%s: %q path differs: %s vs %s", table, key, pa, pb))
		}
	}
	return lines, nil
}

func filePathsByKey(s *store.Store, collection string, rows *value.Rows) (map[string]string, error) {
	labels, err := labelsOf(s, collection)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]string, len(labels))
	for label, id := range labels {
		byID[id] = label
	}
	out := make(map[string]string)
	for i := 0; i < rows.RowCount(); i++ {
		key := fmt.Sprintf("%s:%s", byID[rows.GetInt(i, 0)], rows.GetString(i, 1))
		out[key] = rows.GetString(i, 2)
	}
	return out, nil
}

// CompareDatabases walks every collection common to both stores and
// concatenates every comparator's output. Equal stores return nil.
func CompareDatabases(a, b *store.Store) ([]string, error) {
	var all []string
	for _, collection := range commonCollections(a, b) {
		for _, cmp := range []func(*store.Store, *store.Store, string) ([]string, error){
			CompareScalarParameters,
			CompareVectorParameters,
			CompareSetParameters,
			CompareTimeSeries,
			CompareTimeSeriesFiles,
		} {
			lines, err := cmp(a, b, collection)
			if err != nil {
				return nil, err
			}
			all = append(all, lines...)
		}
	}
	return all, nil
}

func commonCollections(a, b *store.Store) []string {
	inB := make(map[string]bool)
	for _, c := range b.GetCollections() {
		inB[c] = true
	}
	var out []string
	for _, c := range a.GetCollections() {
		if inB[c] {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// --- shared helpers ----------------------------------------------------

func labelsOf(s *store.Store, collection string) (map[string]int64, error) {
	ids, err := s.GetElementIDs(collection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		attrs, err := s.ReadElementScalarAttributes(collection, id)
		if err != nil {
			return nil, err
		}
		for _, a := range attrs {
			if a.Name == "label" {
				label, _ := a.Value.Text()
				out[label] = id
			}
		}
	}
	return out, nil
}

func setOf(m map[string]int64) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func setOf2(m map[string]string) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedUnion(a, b map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sideName(inFirst bool) string {
	if inFirst {
		return "first store"
	}
	return "second store"
}

func equalOrderedValues(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !value.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMultiset(a, b []store.AttributeValue) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		matched := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if av.Name == bv.Name && value.Equal(av.Value, bv.Value) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func equalTimeSeriesRows(a, b [][]store.AttributeValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j].Name != b[i][j].Name || !value.Equal(a[i][j].Value, b[i][j].Value) {
				return false
			}
		}
	}
	return true
}
