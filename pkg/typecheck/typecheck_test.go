package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/schema"
	"github.com/dukaforge/silo/pkg/value"
)

func TestNullAndBlobFitAnyColumnType(t *testing.T) {
	for _, ct := range []schema.ColumnType{schema.Integer, schema.Real, schema.Text} {
		assert.True(t, Check(value.NewNull(), ct))
		assert.True(t, Check(value.NewBlob([]byte("x")), ct))
	}
}

func TestInt64OnlyFitsInteger(t *testing.T) {
	assert.True(t, Check(value.NewInt64(1), schema.Integer))
	assert.False(t, Check(value.NewInt64(1), schema.Real))
	assert.False(t, Check(value.NewInt64(1), schema.Text))
}

func TestRealWidensIntoRealOrInteger(t *testing.T) {
	assert.True(t, Check(value.NewReal(1.5), schema.Real))
	assert.True(t, Check(value.NewReal(1.5), schema.Integer))
	assert.False(t, Check(value.NewReal(1.5), schema.Text))
}

func TestTextOnlyFitsText(t *testing.T) {
	assert.True(t, Check(value.NewText("a"), schema.Text))
	assert.False(t, Check(value.NewText("a"), schema.Integer))
	assert.False(t, Check(value.NewText("a"), schema.Real))
}

func TestVectorKindsFollowScalarCounterpartRule(t *testing.T) {
	assert.True(t, Check(value.NewIntVec([]int64{1, 2}), schema.Integer))
	assert.False(t, Check(value.NewIntVec([]int64{1, 2}), schema.Real))

	assert.True(t, Check(value.NewRealVec([]float64{1, 2}), schema.Real))
	assert.True(t, Check(value.NewRealVec([]float64{1, 2}), schema.Integer))

	assert.True(t, Check(value.NewTextVec([]string{"a"}), schema.Text))
	assert.False(t, Check(value.NewTextVec([]string{"a"}), schema.Integer))
}

func TestValidateReturnsTypeMismatchError(t *testing.T) {
	err := Validate("Plant", "label", value.NewInt64(1), schema.Text)
	require.Error(t, err)
	assert.Equal(t, dberr.TypeMismatch, dberr.KindOf(err))
}

func TestValidateElementSkipsUnknownAttributes(t *testing.T) {
	attrs := map[string]value.Value{
		"capacity": value.NewReal(1.0),
		"unknown":  value.NewText("x"),
	}
	cols := map[string]schema.ColumnType{"capacity": schema.Real}
	assert.NoError(t, ValidateElement("Plant", attrs, cols))
}

func TestValidateElementCatchesMismatch(t *testing.T) {
	attrs := map[string]value.Value{"capacity": value.NewText("oops")}
	cols := map[string]schema.ColumnType{"capacity": schema.Real}
	err := ValidateElement("Plant", attrs, cols)
	require.Error(t, err)
	assert.Equal(t, dberr.TypeMismatch, dberr.KindOf(err))
}
