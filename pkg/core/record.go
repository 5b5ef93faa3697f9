package core

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oneconcern/datapatch/pkg/container"
	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
	"github.com/oneconcern/datapatch/pkg/storage"
)

const (
	// FileExt is the extension of container objects in a store
	FileExt = ".dpc"

	patchInfix = ".p"
)

var (
	nameRe   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	objectRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_-]*?)(?:\.p(\d+))?\.dpc$`)
)

// ValidateRecordName checks a user-facing record name. Names map directly
// to object keys, so the character set is deliberately narrow.
func ValidateRecordName(name string) error {
	if !nameRe.MatchString(name) {
		return errors.New("invalid record name").WithPath(name).Wrap(model.ErrInvalidKey)
	}
	return nil
}

// baseObjectName is the store key of a record's first container
func baseObjectName(name string) string {
	return name + FileExt
}

// patchObjectName is the store key of one patch container, keyed by its
// patch index so that listing a store reveals chain order
func patchObjectName(name string, idx uint64) string {
	return fmt.Sprintf("%s%s%d%s", name, patchInfix, idx, FileExt)
}

// Record binds a validated chain to its objects in a store, under one
// user-facing name. It is the top-level handle: reads go through the
// overlay of the committed chain, writes through at most one open patch
// session at a time.
//
// A Record is not safe for concurrent use.
type Record struct {
	name  string
	store storage.Store

	chain    *Chain   // nil until the base container is committed
	overlay  *Overlay // ditto
	writable *WritableChain
	pending  *container.Container // sealed but not yet persisted

	l *zap.Logger
	_ struct{}
}

// CreateRecord starts a fresh record in the store: a new record identity
// with an already-open write session for the base container. Nothing is
// persisted until Commit.
func CreateRecord(ctx context.Context, store storage.Store, name string, opts ...Option) (*Record, error) {
	if err := ValidateRecordName(name); err != nil {
		return nil, err
	}
	s := defaultSettings()
	s.apply(opts)

	ok, err := store.Has(ctx, baseObjectName(name))
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.New("a record by that name is already stored").
			WithPath(name).Wrap(status.ErrRecordExists)
	}

	r := &Record{
		name:     name,
		store:    store,
		writable: newBaseWriter(opts...),
		l:        s.l,
	}
	r.l.Info("creating record",
		zap.String("name", name),
		zap.String("record", r.writable.Header().RecordID.String()),
		zap.String("store", store.String()),
	)
	return r, nil
}

// OpenRecord loads and validates all containers of a stored record. The
// returned record is read-only until CreatePatch.
func OpenRecord(ctx context.Context, store storage.Store, name string, opts ...Option) (*Record, error) {
	if err := ValidateRecordName(name); err != nil {
		return nil, err
	}
	s := defaultSettings()
	s.apply(opts)

	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	var containers []*container.Container
	for _, key := range keys {
		m := objectRe.FindStringSubmatch(key)
		if m == nil || m[1] != name {
			continue
		}
		cont, derr := fetchContainer(ctx, store, key)
		if derr != nil {
			return nil, derr
		}
		containers = append(containers, cont)
	}
	if len(containers) == 0 {
		return nil, errors.New("no such record in store").
			WithPath(name).Wrap(status.ErrRecordNotFound)
	}

	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Header.PatchIndex < containers[j].Header.PatchIndex
	})
	chain, err := ValidateChain(containers)
	if err != nil {
		return nil, err
	}

	s.l.Debug("opened record",
		zap.String("name", name),
		zap.String("record", chain.RecordID().String()),
		zap.Int("containers", chain.Len()),
	)
	return &Record{
		name:    name,
		store:   store,
		chain:   chain,
		overlay: NewOverlay(chain),
		l:       s.l,
	}, nil
}

func fetchContainer(ctx context.Context, store storage.Store, key string) (*container.Container, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	cont, err := container.Decode(rdr)
	if err != nil {
		return nil, errors.New("cannot load container object").WithPath(key).Wrap(err)
	}
	return cont, nil
}

// Name is the record's name in its store
func (r *Record) Name() string {
	return r.name
}

// RecordID is the record's immutable identity
func (r *Record) RecordID() uuid.UUID {
	if r.chain == nil {
		return r.writable.Header().RecordID
	}
	return r.chain.RecordID()
}

// Chain exposes the committed chain backing this record, nil while the
// base container is still open
func (r *Record) Chain() *Chain {
	return r.chain
}

// Writable reports whether a write session is currently open
func (r *Record) Writable() bool {
	return r.writable != nil
}

// CreatePatch opens a write session for the next patch of this record
func (r *Record) CreatePatch() error {
	if r.writable != nil || r.pending != nil {
		return errors.New("a write session is already open").
			WithPath(r.name).Wrap(status.ErrPatchInProgress)
	}
	w, err := r.chain.Begin(Logger(r.l))
	if err != nil {
		return err
	}
	r.writable = w
	return nil
}

// Commit seals the open write session and persists the resulting
// container as a new, exclusively created object. On success the record's
// committed view advances to include the new container.
//
// If persisting fails, the sealed container is retained and a later
// Commit retries the store write without losing the session's edits.
func (r *Record) Commit(ctx context.Context) error {
	if r.pending == nil {
		if r.writable == nil {
			return errors.New("no open write session").
				WithPath(r.name).Wrap(status.ErrSessionClosed)
		}
		cont, err := r.writable.Commit()
		if err != nil {
			return err
		}
		r.pending = cont
		r.writable = nil
	}
	cont := r.pending

	key := patchObjectName(r.name, cont.Header.PatchIndex)
	if cont.Header.PrevPatchID == nil {
		key = baseObjectName(r.name)
	}
	if err := putContainer(ctx, r.store, key, cont); err != nil {
		return err
	}

	var chain *Chain
	var err error
	if r.chain == nil {
		chain, err = ValidateChain([]*container.Container{cont})
	} else {
		chain, err = r.chain.Extend(cont)
	}
	if err != nil {
		return err
	}
	r.chain = chain
	r.overlay = NewOverlay(chain)
	r.pending = nil
	return nil
}

// DiscardPatch abandons the open patch session, including a sealed patch
// whose store write failed. The base session of a fresh record cannot be
// discarded this way: an unborn record is simply dropped by letting it go
// out of scope.
func (r *Record) DiscardPatch() error {
	if r.writable == nil && r.pending == nil {
		return errors.New("no open write session").
			WithPath(r.name).Wrap(status.ErrSessionClosed)
	}
	if r.chain == nil {
		return errors.New("cannot discard the base container session").
			WithPath(r.name).Wrap(status.ErrBaseContainer)
	}
	if r.writable != nil {
		if err := r.writable.Discard(); err != nil {
			return err
		}
		r.writable = nil
	}
	r.pending = nil
	return nil
}

func putContainer(ctx context.Context, store storage.Store, key string, cont *container.Container) error {
	var buf bytes.Buffer
	if err := cont.Encode(&buf); err != nil {
		return err
	}
	if err := store.Put(ctx, key, &buf); err != nil {
		return errors.New("cannot persist container object").WithPath(key).Wrap(err)
	}
	return nil
}

func (r *Record) view() (*Overlay, error) {
	if r.overlay == nil {
		return nil, errors.New("record has no committed container yet").
			WithPath(r.name).Wrap(status.ErrPatchInProgress)
	}
	return r.overlay, nil
}

// Resolve returns the effective entry at path, as of the last committed
// container. An open patch session never affects reads until Commit.
func (r *Record) Resolve(path string) (Entry, error) {
	o, err := r.view()
	if err != nil {
		return Entry{}, err
	}
	return o.Resolve(path)
}

// ResolveAttr returns the effective value of one attribute
func (r *Record) ResolveAttr(path, key string) (model.Value, error) {
	o, err := r.view()
	if err != nil {
		return model.Value{}, err
	}
	return o.ResolveAttr(path, key)
}

// ListChildren returns the effective child keys of the group at path
func (r *Record) ListChildren(path string) ([]string, error) {
	o, err := r.view()
	if err != nil {
		return nil, err
	}
	return o.ListChildren(path)
}

// ListAttributes returns the effective attribute keys of the node at path
func (r *Record) ListAttributes(path string) ([]string, error) {
	o, err := r.view()
	if err != nil {
		return nil, err
	}
	return o.ListAttributes(path)
}

func (r *Record) writer() (*WritableChain, error) {
	if r.writable == nil {
		return nil, errors.New("record is read-only, no open write session").
			WithPath(r.name).Wrap(status.ErrReadOnly)
	}
	return r.writable, nil
}

// Set records a dataset write in the open session
func (r *Record) Set(path string, data []byte) error {
	w, err := r.writer()
	if err != nil {
		return err
	}
	return w.Set(path, data)
}

// CreateGroup records a substantive group in the open session
func (r *Record) CreateGroup(path string) error {
	w, err := r.writer()
	if err != nil {
		return err
	}
	return w.CreateGroup(path)
}

// Delete records the removal of path in the open session
func (r *Record) Delete(path string) error {
	w, err := r.writer()
	if err != nil {
		return err
	}
	return w.Delete(path)
}

// SetAttr records an attribute write in the open session
func (r *Record) SetAttr(path, key string, data []byte) error {
	w, err := r.writer()
	if err != nil {
		return err
	}
	return w.SetAttr(path, key, data)
}

// DeleteAttr records the removal of an attribute in the open session
func (r *Record) DeleteAttr(path, key string) error {
	w, err := r.writer()
	if err != nil {
		return err
	}
	return w.DeleteAttr(path, key)
}

// Merge flattens this record's chain into a single container and stores
// it under targetName. The merged record reads identically to this one
// but carries no patch history.
func (r *Record) Merge(ctx context.Context, targetName string) (*Record, error) {
	if _, err := r.view(); err != nil {
		return nil, err
	}
	merged, err := Merge(r.chain)
	if err != nil {
		return nil, err
	}
	return r.storeDerived(ctx, targetName, merged)
}

// WriteStub derives a metadata-only stub of this record and stores it
// under targetName, typically in a different store. Patches committed on
// the stub record transfer back onto the full chain.
func (r *Record) WriteStub(ctx context.Context, targetName string) (*Record, error) {
	if _, err := r.view(); err != nil {
		return nil, err
	}
	stub, err := BuildStub(r.chain)
	if err != nil {
		return nil, err
	}
	return r.storeDerived(ctx, targetName, stub)
}

func (r *Record) storeDerived(ctx context.Context, name string, cont *container.Container) (*Record, error) {
	if err := ValidateRecordName(name); err != nil {
		return nil, err
	}
	ok, err := r.store.Has(ctx, baseObjectName(name))
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.New("a record by that name is already stored").
			WithPath(name).Wrap(status.ErrRecordExists)
	}
	if err = putContainer(ctx, r.store, baseObjectName(name), cont); err != nil {
		return nil, err
	}
	chain, err := ValidateChain([]*container.Container{cont})
	if err != nil {
		return nil, err
	}
	r.l.Info("stored derived record",
		zap.String("name", name),
		zap.String("record", chain.RecordID().String()),
		zap.Bool("stub", cont.Header.IsStub),
	)
	return &Record{
		name:    name,
		store:   r.store,
		chain:   chain,
		overlay: NewOverlay(chain),
		l:       r.l,
	}, nil
}

// Skeleton enumerates the effective structure of the record without
// touching payload data
func (r *Record) Skeleton() (map[string]SkeletonNode, error) {
	if _, err := r.view(); err != nil {
		return nil, err
	}
	return Skeleton(r.chain)
}

// ListRecords returns the names of all records found in a store, in
// lexical order
func ListRecords(ctx context.Context, store storage.Store) ([]string, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, key := range keys {
		m := objectRe.FindStringSubmatch(key)
		if m == nil || m[2] != "" || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names, nil
}

// DeleteRecord removes all container objects of a record from the store.
// This is the only destructive operation of the whole API and it operates
// on whole records, never on single containers.
func DeleteRecord(ctx context.Context, store storage.Store, name string) error {
	if err := ValidateRecordName(name); err != nil {
		return err
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	var victims []string
	for _, key := range keys {
		m := objectRe.FindStringSubmatch(key)
		if m != nil && m[1] == name {
			victims = append(victims, key)
		}
	}
	if len(victims) == 0 {
		return errors.New("no such record in store").
			WithPath(name).Wrap(status.ErrRecordNotFound)
	}
	for _, key := range victims {
		if err = store.Delete(ctx, key); err != nil {
			return errors.New("cannot delete container object").WithPath(key).Wrap(err)
		}
	}
	return nil
}
