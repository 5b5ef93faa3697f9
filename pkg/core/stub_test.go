package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/datapatch/pkg/container"
	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
)

func TestSkeleton(t *testing.T) {
	chain := buildSampleChain(t)
	skel, err := Skeleton(chain)
	require.NoError(t, err)

	assert.Equal(t, SkeletonNode{Kind: model.KindGroup, Attrs: []string{"title"}}, skel["/"])
	assert.Equal(t, SkeletonNode{Kind: model.KindDataset, Attrs: []string{"unit"}}, skel["/g/x"])
	assert.Equal(t, SkeletonNode{Kind: model.KindDataset, Attrs: []string{}}, skel["/g/z"])
	assert.Equal(t, SkeletonNode{Kind: model.KindGroup, Attrs: []string{}}, skel["/other/deep"])
	assert.NotContains(t, skel, "/g/y")
}

func TestBuildStubStructure(t *testing.T) {
	chain := buildSampleChain(t)
	stub, err := BuildStub(chain)
	require.NoError(t, err)
	require.True(t, stub.Committed())
	assert.True(t, stub.Header.IsStub)
	assert.Equal(t, chain.Head().Header.PatchID, stub.Header.PatchID)
	assert.Equal(t, chain.Head().Header.PatchIndex, stub.Header.PatchIndex)
	assert.Nil(t, stub.Header.PrevPatchID)

	stubChain, err := ValidateChain([]*container.Container{stub})
	require.NoError(t, err)

	// same skeleton as the chain it was derived from
	want, err := Skeleton(chain)
	require.NoError(t, err)
	got, err := Skeleton(stubChain)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStubValuesNotMaterializable(t *testing.T) {
	chain := buildSampleChain(t)
	stub, err := BuildStub(chain)
	require.NoError(t, err)
	stubChain, err := ValidateChain([]*container.Container{stub})
	require.NoError(t, err)

	o := NewOverlay(stubChain)
	_, err = o.Resolve("/g/x")
	require.ErrorIs(t, err, status.ErrStubNotMaterializable)
	assert.Equal(t, 0, errors.Index(err))

	_, err = o.ResolveAttr("/g/x", "unit")
	assert.ErrorIs(t, err, status.ErrStubNotMaterializable)

	// structure remains fully browsable
	keys, err := o.ListChildren("/g")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "z"}, keys)
}

func TestStubSurvivesCodecRoundTrip(t *testing.T) {
	chain := buildSampleChain(t)
	stub, err := BuildStub(chain)
	require.NoError(t, err)

	back := codecRoundTrip(t, stub)
	assert.True(t, back.Header.IsStub)
	require.NoError(t, back.Verify())

	stubChain, err := ValidateChain([]*container.Container{back})
	require.NoError(t, err)
	_, err = NewOverlay(stubChain).Resolve("/g/x")
	assert.ErrorIs(t, err, status.ErrStubNotMaterializable)
}

// the whole point of stubs: a patch authored against the stub applies
// cleanly to the full chain it was derived from
func TestStubPatchTransfersToFullChain(t *testing.T) {
	chain := buildSampleChain(t)
	stub, err := BuildStub(chain)
	require.NoError(t, err)
	stubChain, err := ValidateChain([]*container.Container{stub})
	require.NoError(t, err)

	w, err := stubChain.Begin()
	require.NoError(t, err)
	require.NoError(t, w.Set("/new", []byte("9")))
	require.NoError(t, w.Set("/g/x", []byte("100")))
	cont, err := w.Commit()
	require.NoError(t, err)

	full, err := chain.Extend(cont)
	require.NoError(t, err)
	o := NewOverlay(full)
	assert.Equal(t, []byte("9"), resolveBytes(t, o, "/new"))
	assert.Equal(t, []byte("100"), resolveBytes(t, o, "/g/x"))

	// untouched values resolve from the original containers
	assert.Equal(t, []byte("3"), resolveBytes(t, o, "/g/z"))
}
