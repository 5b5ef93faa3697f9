package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseHeader(t *testing.T) {
	h := NewBaseHeader()
	require.NoError(t, h.Validate())
	assert.EqualValues(t, 0, h.PatchIndex)
	assert.Nil(t, h.PrevPatchID)
	assert.False(t, h.Committed())
	assert.EqualValues(t, CurrentHeaderVersion, h.Version)
}

func TestNewPatchHeader(t *testing.T) {
	base := NewBaseHeader()
	p := NewPatchHeader(base)
	require.NoError(t, p.Validate())
	assert.Equal(t, base.RecordID, p.RecordID)
	assert.NotEqual(t, base.PatchID, p.PatchID)
	require.NotNil(t, p.PrevPatchID)
	assert.Equal(t, base.PatchID, *p.PrevPatchID)
	assert.EqualValues(t, 1, p.PatchIndex)
}

func TestHeaderValidate(t *testing.T) {
	assert.Error(t, Header{}.Validate())

	h := NewBaseHeader()
	h.RecordID = uuid.Nil
	assert.ErrorIs(t, h.Validate(), ErrInvalidHeader)

	// index 0 containers are bases and must not link backward
	h = NewBaseHeader()
	prev := uuid.New()
	h.PrevPatchID = &prev
	assert.ErrorIs(t, h.Validate(), ErrInvalidHeader)

	// derived bases (stubs, merged containers) keep the head's index
	// without a predecessor link
	h = NewBaseHeader()
	h.PatchIndex = 3
	h.IsStub = true
	assert.NoError(t, h.Validate())
	h.IsStub = false
	assert.NoError(t, h.Validate())
}

func TestHeaderCommitted(t *testing.T) {
	h := NewBaseHeader()
	assert.False(t, h.Committed())
	h.ContentHash = "blake2b:00"
	assert.True(t, h.Committed())
}
