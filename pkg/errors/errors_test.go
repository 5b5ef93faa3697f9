package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapping(t *testing.T) {
	sentinel := New("some condition")
	err := New("operation failed").WithPath("/a/b").WithIndex(2).Wrap(sentinel)

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "[path: /a/b]")
	assert.Contains(t, err.Error(), "[container: 2]")
	assert.Contains(t, err.Error(), "some condition")
}

func TestPathIndexExtraction(t *testing.T) {
	inner := New("inner").WithPath("/x")
	outer := New("outer").WithIndex(1).Wrap(inner)

	assert.Equal(t, "/x", Path(outer))
	assert.Equal(t, 1, Index(outer))

	assert.Equal(t, "", Path(New("bare")))
	assert.Equal(t, -1, Index(New("bare")))
	assert.Equal(t, "", Path(nil))
}

func TestAs(t *testing.T) {
	var e *Error
	require.True(t, As(New("x").Wrap(New("y")), &e))
	assert.Equal(t, "x: y", e.Error())
}
