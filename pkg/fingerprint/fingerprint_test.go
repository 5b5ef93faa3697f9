package fingerprint

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumBytes(t *testing.T) {
	d1 := SumBytes([]byte("payload"))
	d2 := SumBytes([]byte("payload"))
	d3 := SumBytes([]byte("other"))

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.True(t, strings.HasPrefix(d1, Algorithm+":"))
}

func TestSumReader(t *testing.T) {
	d, err := Sum(bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	assert.Equal(t, SumBytes([]byte("payload")), d)
}

func TestParse(t *testing.T) {
	algo, digest, err := Parse(SumBytes([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, Algorithm, algo)
	assert.Len(t, digest, 64)

	_, _, err = Parse("noseparator")
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, err = Parse(":abcd")
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, err = Parse(Algorithm + ":zz")
	assert.ErrorIs(t, err, ErrMalformed)
}
