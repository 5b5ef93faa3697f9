package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValueRejectsMarkers(t *testing.T) {
	_, err := NewValue(DeletionMark)
	require.ErrorIs(t, err, ErrReservedValue)
	_, err = NewValue(StubMark)
	require.ErrorIs(t, err, ErrReservedValue)

	// longer payloads embedding marker bytes are fine
	v, err := NewValue([]byte{0x7f, 0x7f})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7f, 0x7f}, v.Bytes())
}

func TestValueMarkers(t *testing.T) {
	d := DeletedValue()
	assert.True(t, d.IsDeleted())
	assert.False(t, d.IsStub())
	assert.Nil(t, d.Bytes())

	s := StubValue()
	assert.True(t, s.IsStub())
	assert.False(t, s.IsDeleted())
	assert.Nil(t, s.Bytes())

	assert.False(t, d.Equal(s))
	assert.False(t, d.Equal(MustValue(nil)))
}

func TestValueSentinelRoundTrip(t *testing.T) {
	cases := []Value{
		MustValue([]byte("hello")),
		MustValue(nil),
		DeletedValue(),
		StubValue(),
	}
	for _, v := range cases {
		back := UnmarshalSentinel(v.MarshalSentinel())
		assert.True(t, v.Equal(back), "value %#v", v)
	}
}

func TestValueEqual(t *testing.T) {
	a := MustValue([]byte("x"))
	b := MustValue([]byte("x"))
	c := MustValue([]byte("y"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
