package container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/datapatch/pkg/model"
)

func testTree() *model.Group {
	root := model.NewGroup(false)
	g := model.NewGroup(true)
	g.Attrs["unit"] = model.MustValue([]byte("mm"))
	g.Children["data"] = model.NewDataset(model.MustValue([]byte{1, 2, 3}))
	g.Children["gone"] = model.NewDataset(model.DeletedValue())
	g.Children["later"] = model.NewDataset(model.StubValue())
	root.Children["a"] = g
	return root
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New(model.NewBaseHeader(), testTree())
	require.NoError(t, c.Seal())

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))

	back, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Header, back.Header)
	require.NoError(t, back.Verify())

	g, ok := back.Root.Children["a"].(*model.Group)
	require.True(t, ok)
	assert.True(t, g.Overwrite)
	assert.True(t, g.Attrs["unit"].Equal(model.MustValue([]byte("mm"))))

	d, ok := g.Children["data"].(*model.Dataset)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, d.Value.Bytes())

	assert.True(t, g.Children["gone"].(*model.Dataset).Value.IsDeleted())
	assert.True(t, g.Children["later"].(*model.Dataset).Value.IsStub())
}

func TestHeaderBlockLayout(t *testing.T) {
	c := New(model.NewBaseHeader(), nil)
	require.NoError(t, c.Seal())

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))
	raw := buf.Bytes()
	require.Greater(t, len(raw), HeaderBlockSize)

	// the administrative block is fixed size and parseable on its own
	assert.True(t, bytes.HasPrefix(raw, []byte(FormatMagic+"\n")))
	h, err := DecodeHeader(bytes.NewReader(raw[:HeaderBlockSize]))
	require.NoError(t, err)
	assert.Equal(t, c.Header, h)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a container")))
	assert.ErrorIs(t, err, ErrFormat)

	block := make([]byte, HeaderBlockSize)
	copy(block, "wrong_magic\n1024\n{}\x00")
	_, err = Decode(bytes.NewReader(block))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestVerifyDetectsTampering(t *testing.T) {
	c := New(model.NewBaseHeader(), testTree())
	require.NoError(t, c.Seal())
	require.NoError(t, c.Verify())

	d := c.Root.Children["a"].(*model.Group).Children["data"].(*model.Dataset)
	d.Value = model.MustValue([]byte("tampered"))
	assert.ErrorIs(t, c.Verify(), ErrFormat)
}

func TestSealTwice(t *testing.T) {
	c := New(model.NewBaseHeader(), nil)
	require.NoError(t, c.Seal())
	assert.ErrorIs(t, c.Seal(), ErrSealed)
	assert.False(t, New(model.NewBaseHeader(), nil).Committed())
}

func TestVerifyUnsealed(t *testing.T) {
	c := New(model.NewBaseHeader(), nil)
	assert.ErrorIs(t, c.Verify(), ErrNotSealed)
}

func TestPayloadDeterminism(t *testing.T) {
	c := New(model.NewBaseHeader(), testTree())
	p1, err := c.Payload()
	require.NoError(t, err)
	p2, err := c.Payload()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
