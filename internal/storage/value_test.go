package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValueFromSerialNullAndConstants(t *testing.T) {
	v, err := NewValueFromSerial(0, nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = NewValueFromSerial(8, nil)
	require.NoError(t, err)
	assert.Equal(t, ValueInteger, v.Kind)
	assert.Equal(t, int64(0), v.Integer)

	v, err = NewValueFromSerial(9, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Integer)
}

func TestNewValueFromSerialText(t *testing.T) {
	v, err := NewValueFromSerial(17, []byte("hi")) // (2*2)+13 = 17: TEXT of length 2
	require.NoError(t, err)
	assert.Equal(t, ValueText, v.Kind)
	text, err := v.Text()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestValueRenderNull(t *testing.T) {
	v := Value{Kind: ValueNull}
	rendered, err := v.Render()
	require.NoError(t, err)
	assert.Equal(t, "null", rendered)
}

func TestValueRenderInteger(t *testing.T) {
	v := Value{Kind: ValueInteger, Integer: 42}
	rendered, err := v.Render()
	require.NoError(t, err)
	assert.Equal(t, "42", rendered)
}

func TestCompareOrdersByStorageClass(t *testing.T) {
	null := Value{Kind: ValueNull}
	num := Value{Kind: ValueInteger, Integer: 1}
	text := Value{Kind: ValueText, Bytes: []byte("a")}
	blob := Value{Kind: ValueBlob, Bytes: []byte{0x01}}

	assert.Equal(t, -1, Compare(null, num))
	assert.Equal(t, -1, Compare(num, text))
	assert.Equal(t, -1, Compare(text, blob))
	assert.Equal(t, 0, Compare(num, Value{Kind: ValueInteger, Integer: 1}))
}

func TestCompareNumericCrossesIntAndReal(t *testing.T) {
	i := Value{Kind: ValueInteger, Integer: 5}
	r := Value{Kind: ValueReal, Real: 5.0}
	assert.Equal(t, 0, Compare(i, r))

	r2 := Value{Kind: ValueReal, Real: 5.5}
	assert.Equal(t, -1, Compare(i, r2))
}
