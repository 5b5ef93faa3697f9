package core

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/dlogger"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
	"github.com/oneconcern/datapatch/pkg/storage"
	"github.com/oneconcern/datapatch/pkg/storage/localfs"
)

func testStore() storage.Store {
	return localfs.New(afero.NewMemMapFs())
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "weather", Logger(dlogger.MustNew(dlogger.LogLevelNone)))
	require.NoError(t, err)
	require.True(t, r.Writable())
	require.NoError(t, r.Set("/temp", []byte("21")))
	require.NoError(t, r.SetAttr("/temp", "unit", []byte("C")))
	require.NoError(t, r.Commit(ctx))
	assert.False(t, r.Writable())

	// patch it
	require.NoError(t, r.CreatePatch())
	require.NoError(t, r.Set("/temp", []byte("22")))
	require.NoError(t, r.Set("/wind", []byte("12")))
	require.NoError(t, r.Commit(ctx))
	require.Equal(t, 2, r.Chain().Len())

	// a separate open sees the same state
	back, err := OpenRecord(ctx, store, "weather")
	require.NoError(t, err)
	assert.Equal(t, r.RecordID(), back.RecordID())
	assert.Equal(t, 2, back.Chain().Len())

	entry, err := back.Resolve("/temp")
	require.NoError(t, err)
	assert.Equal(t, []byte("22"), entry.Value.Bytes())

	v, err := back.ResolveAttr("/temp", "unit")
	require.NoError(t, err)
	assert.Equal(t, []byte("C"), v.Bytes())

	keys, err := back.ListChildren(model.RootPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"temp", "wind"}, keys)
}

func TestRecordObjectNaming(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Commit(ctx))
	require.NoError(t, r.CreatePatch())
	require.NoError(t, r.Commit(ctx))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec.dpc", "rec.p1.dpc"}, keys)
}

func TestRecordNameValidation(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	for _, name := range []string{"", "a/b", ".hidden", "sp ace", "x@y"} {
		_, err := CreateRecord(ctx, store, name)
		assert.Error(t, err, "name %q", name)
	}
	for _, name := range []string{"a", "rec-1", "Weather_2026"} {
		assert.NoError(t, ValidateRecordName(name), "name %q", name)
	}
}

func TestRecordAlreadyExists(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Commit(ctx))

	_, err = CreateRecord(ctx, store, "rec")
	assert.ErrorIs(t, err, status.ErrRecordExists)
}

func TestRecordNotFound(t *testing.T) {
	_, err := OpenRecord(context.Background(), testStore(), "nope")
	assert.ErrorIs(t, err, status.ErrRecordNotFound)
}

func TestRecordSessionGuards(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "rec")
	require.NoError(t, err)

	// reads require a committed container, writes an open session
	_, err = r.Resolve("/a")
	assert.ErrorIs(t, err, status.ErrPatchInProgress)
	assert.ErrorIs(t, r.DiscardPatch(), status.ErrBaseContainer)

	require.NoError(t, r.Commit(ctx))
	assert.ErrorIs(t, r.Set("/a", []byte("1")), status.ErrReadOnly)
	assert.ErrorIs(t, r.Commit(ctx), status.ErrSessionClosed)

	require.NoError(t, r.CreatePatch())
	assert.ErrorIs(t, r.CreatePatch(), status.ErrPatchInProgress)
	require.NoError(t, r.Set("/a", []byte("1")))
	require.NoError(t, r.DiscardPatch())

	// the discarded edit never became visible
	_, err = r.Resolve("/a")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestRecordMerge(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Set("/a", []byte("1")))
	require.NoError(t, r.Commit(ctx))
	require.NoError(t, r.CreatePatch())
	require.NoError(t, r.Set("/b", []byte("2")))
	require.NoError(t, r.Delete("/a"))
	require.NoError(t, r.Commit(ctx))

	flat, err := r.Merge(ctx, "flat")
	require.NoError(t, err)
	assert.Equal(t, 1, flat.Chain().Len())
	assert.Equal(t, r.RecordID(), flat.RecordID())

	entry, err := flat.Resolve("/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), entry.Value.Bytes())
	_, err = flat.Resolve("/a")
	assert.ErrorIs(t, err, status.ErrNotFound)

	// the merged record is a first-class stored record
	back, err := OpenRecord(ctx, store, "flat")
	require.NoError(t, err)
	assert.Equal(t, 1, back.Chain().Len())

	_, err = r.Merge(ctx, "flat")
	assert.ErrorIs(t, err, status.ErrRecordExists)
}

func TestRecordWriteStub(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Set("/a", []byte("1")))
	require.NoError(t, r.Commit(ctx))

	stub, err := r.WriteStub(ctx, "skel")
	require.NoError(t, err)
	_, err = stub.Resolve("/a")
	assert.ErrorIs(t, err, status.ErrStubNotMaterializable)

	skel, err := stub.Skeleton()
	require.NoError(t, err)
	assert.Contains(t, skel, "/a")

	// a patch on the stub record transfers back to the original
	require.NoError(t, stub.CreatePatch())
	require.NoError(t, stub.Set("/new", []byte("9")))
	require.NoError(t, stub.Commit(ctx))

	transferred := stub.Chain().Head()
	full, err := r.Chain().Extend(transferred)
	require.NoError(t, err)
	assert.Equal(t, []byte("9"), resolveBytes(t, NewOverlay(full), "/new"))
	assert.Equal(t, []byte("1"), resolveBytes(t, NewOverlay(full), "/a"))
}

var errBackendDown = errors.New("backend unavailable")

// flakyStore fails the next n Put calls, then behaves normally
type flakyStore struct {
	storage.Store
	failures int
}

func (f *flakyStore) Put(ctx context.Context, key string, source io.Reader) error {
	if f.failures > 0 {
		f.failures--
		return errBackendDown
	}
	return f.Store.Put(ctx, key, source)
}

func TestCommitRetriesAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: testStore(), failures: 1}

	r, err := CreateRecord(ctx, flaky, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Set("/a", []byte("1")))
	require.ErrorIs(t, r.Commit(ctx), errBackendDown)

	// the sealed container is retained, no second session may open
	assert.ErrorIs(t, r.CreatePatch(), status.ErrPatchInProgress)

	// retrying persists the very same edits
	require.NoError(t, r.Commit(ctx))
	entry, err := r.Resolve("/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), entry.Value.Bytes())

	back, err := OpenRecord(ctx, flaky, "rec")
	require.NoError(t, err)
	assert.Equal(t, r.RecordID(), back.RecordID())
}

func TestDiscardPendingPatch(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: testStore()}

	r, err := CreateRecord(ctx, flaky, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Set("/a", []byte("1")))
	require.NoError(t, r.Commit(ctx))

	require.NoError(t, r.CreatePatch())
	require.NoError(t, r.Set("/a", []byte("2")))
	flaky.failures = 1
	require.ErrorIs(t, r.Commit(ctx), errBackendDown)

	// giving up on the stranded patch frees the record for a new session
	require.NoError(t, r.DiscardPatch())
	entry, err := r.Resolve("/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), entry.Value.Bytes())
	require.NoError(t, r.CreatePatch())
}

func TestListRecords(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	for _, name := range []string{"bravo", "alpha"} {
		r, err := CreateRecord(ctx, store, name)
		require.NoError(t, err)
		require.NoError(t, r.Commit(ctx))
	}
	names, err := ListRecords(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, names)
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	store := testStore()

	r, err := CreateRecord(ctx, store, "rec")
	require.NoError(t, err)
	require.NoError(t, r.Commit(ctx))
	require.NoError(t, r.CreatePatch())
	require.NoError(t, r.Commit(ctx))

	require.NoError(t, DeleteRecord(ctx, store, "rec"))
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.ErrorIs(t, DeleteRecord(ctx, store, "rec"), status.ErrRecordNotFound)
}
