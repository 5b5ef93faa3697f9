package core

import (
	"go.uber.org/zap"

	"github.com/oneconcern/datapatch/pkg/container"
	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
)

// WritableChain is an open write session producing the next container of a
// chain: create, overwrite and delete operations are recorded against the
// current overlay state and serialized into a new patch container on
// Commit.
//
// A WritableChain is owned by exactly one caller. It is not safe for
// concurrent use, and only one open session per record may exist at a
// time (the storage collaborator enforces this across processes).
type WritableChain struct {
	chain   *Chain   // nil while authoring a base container
	overlay *Overlay // ditto
	cont    *container.Container
	closed  bool
	l       *zap.Logger
}

// Begin opens a write session for the next patch on top of this chain.
// The chain itself is never modified; the session accumulates edits in a
// fresh open container.
func (c *Chain) Begin(opts ...Option) (*WritableChain, error) {
	if !c.Head().Committed() {
		return nil, errors.New("chain head is still open for writing").
			WithIndex(c.Len() - 1).Wrap(status.ErrPatchInProgress)
	}
	s := defaultSettings()
	s.apply(opts)

	header := model.NewPatchHeader(c.Head().Header)
	w := &WritableChain{
		chain:   c,
		overlay: NewOverlay(c),
		cont:    container.New(header, model.NewGroup(false)),
		l:       s.l,
	}
	w.l.Debug("opened patch session",
		zap.String("record", header.RecordID.String()),
		zap.Uint64("patch_index", header.PatchIndex),
	)
	return w, nil
}

// newBaseWriter opens the write session for a fresh base container
func newBaseWriter(opts ...Option) *WritableChain {
	s := defaultSettings()
	s.apply(opts)
	return &WritableChain{
		cont: container.New(model.NewBaseHeader(), model.NewGroup(false)),
		l:    s.l,
	}
}

// Header returns the chain metadata of the container under construction
func (w *WritableChain) Header() model.Header {
	return w.cont.Header
}

func (w *WritableChain) guardOpen() error {
	if w.closed {
		return status.ErrSessionClosed
	}
	return nil
}

// committedKind reports whether path resolves in the committed overlay,
// and to which node kind. Stub values count as existing datasets.
func (w *WritableChain) committedKind(path string) (model.Kind, bool, error) {
	if w.overlay == nil {
		return 0, false, nil
	}
	entry, err := w.overlay.Resolve(path)
	switch {
	case err == nil:
		return entry.Kind, true, nil
	case errors.Is(err, status.ErrStubNotMaterializable):
		return model.KindDataset, true, nil
	case errors.Is(err, status.ErrNotFound):
		return 0, false, nil
	default:
		return 0, false, err
	}
}

// committedAttr reports whether an attribute resolves in the committed
// overlay
func (w *WritableChain) committedAttr(path, key string) (bool, error) {
	if w.overlay == nil {
		return false, nil
	}
	_, err := w.overlay.ResolveAttr(path, key)
	switch {
	case err == nil, errors.Is(err, status.ErrStubNotMaterializable):
		return true, nil
	case errors.Is(err, status.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// openNode walks the open container tree, returning the node at path
func (w *WritableChain) openNode(path string) (model.Node, bool) {
	var node model.Node = w.cont.Root
	for _, seg := range model.SplitPath(path) {
		g, ok := node.(*model.Group)
		if !ok {
			return nil, false
		}
		node, ok = g.Children[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// ensureParent materializes the enclosing groups of path in the open
// container and returns the immediate parent group plus the final key.
//
// Intermediates that resolve in the overlay become pass-through carriers;
// the first intermediate that resolves nowhere becomes a substantive
// group, cutting off any deletion markers or stale subtrees underneath.
// Deeper intermediates are created substantive as well; below the cut
// the flag makes no observable difference.
func (w *WritableChain) ensureParent(path string) (*model.Group, string, error) {
	segs := model.SplitPath(path)
	if len(segs) == 0 {
		return nil, "", errors.New("the root group itself cannot be addressed").
			WithPath(path).Wrap(model.ErrInvalidPath)
	}

	cur := w.cont.Root
	curPath := model.RootPath
	broken := false
	for _, seg := range segs[:len(segs)-1] {
		curPath = model.JoinPath(curPath, seg)
		if child, ok := cur.Children[seg]; ok {
			g, isGroup := child.(*model.Group)
			if !isGroup {
				return nil, "", errors.New("cannot descend through a dataset").
					WithPath(curPath).Wrap(status.ErrNotTraversable)
			}
			cur = g
			continue
		}

		passThrough := false
		if !broken {
			kind, exists, err := w.committedKind(curPath)
			if err != nil {
				return nil, "", err
			}
			if exists && kind == model.KindDataset {
				return nil, "", errors.New("cannot descend through a dataset").
					WithPath(curPath).Wrap(status.ErrNotTraversable)
			}
			passThrough = exists
			broken = !exists
		}
		g := model.NewGroup(!passThrough)
		cur.Children[seg] = g
		cur = g
	}
	return cur, segs[len(segs)-1], nil
}

// ensureAttrTarget materializes (if needed) the node at path that will
// carry attribute edits. An existing dataset upstream is carried by a
// pass-through group here; attributes merge transparently at read time.
func (w *WritableChain) ensureAttrTarget(path string) (model.Node, error) {
	if path == model.RootPath {
		return w.cont.Root, nil
	}
	parent, key, err := w.ensureParent(path)
	if err != nil {
		return nil, err
	}
	if node, ok := parent.Children[key]; ok {
		return node, nil
	}
	_, exists, err := w.committedKind(path)
	if err != nil {
		return nil, err
	}
	g := model.NewGroup(!exists)
	parent.Children[key] = g
	return g, nil
}

// Set records a dataset write: path's entire prior subtree is superseded
// after commit. Missing intermediate groups materialize as pass-through
// carriers. The last write to a slot within one session wins.
func (w *WritableChain) Set(path string, data []byte) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if err := model.ValidatePath(path); err != nil {
		return err
	}
	v, err := model.NewValue(data)
	if err != nil {
		return err
	}
	parent, key, err := w.ensureParent(path)
	if err != nil {
		return err
	}
	parent.Children[key] = model.NewDataset(v)
	w.l.Debug("set dataset", zap.String("path", path))
	return nil
}

// CreateGroup records a substantive group at path: at read time it fully
// replaces whatever existed there in earlier containers.
func (w *WritableChain) CreateGroup(path string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if err := model.ValidatePath(path); err != nil {
		return err
	}
	parent, key, err := w.ensureParent(path)
	if err != nil {
		return err
	}
	parent.Children[key] = model.NewGroup(true)
	w.l.Debug("created group", zap.String("path", path))
	return nil
}

// Delete records the removal of path. Deleting a path that never existed
// is a harmless no-op: nothing is recorded.
func (w *WritableChain) Delete(path string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if err := model.ValidatePath(path); err != nil {
		return err
	}
	_, inCommitted, err := w.committedKind(path)
	if err != nil {
		return err
	}
	if _, inOpen := w.openNode(path); inOpen {
		parent, key, perr := w.ensureParent(path)
		if perr != nil {
			return perr
		}
		delete(parent.Children, key)
	} else if !inCommitted {
		w.l.Debug("delete of a non-existing path ignored", zap.String("path", path))
		return nil
	}
	if inCommitted {
		parent, key, perr := w.ensureParent(path)
		if perr != nil {
			return perr
		}
		parent.Children[key] = model.NewDataset(model.DeletedValue())
	}
	w.l.Debug("deleted path", zap.String("path", path))
	return nil
}

// SetAttr records an attribute write under the node at path,
// materializing pass-through carriers as needed
func (w *WritableChain) SetAttr(path, key string, data []byte) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if err := model.ValidatePath(path); err != nil {
		return err
	}
	if err := model.ValidateKey(key, true); err != nil {
		return err
	}
	v, err := model.NewValue(data)
	if err != nil {
		return err
	}
	node, err := w.ensureAttrTarget(path)
	if err != nil {
		return err
	}
	node.Attributes()[key] = v
	w.l.Debug("set attribute", zap.String("path", model.AttrPath(path, key)))
	return nil
}

// DeleteAttr records the removal of an attribute. Deleting an attribute
// that never existed is a harmless no-op.
func (w *WritableChain) DeleteAttr(path, key string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if err := model.ValidatePath(path); err != nil {
		return err
	}
	if err := model.ValidateKey(key, true); err != nil {
		return err
	}
	inCommitted, err := w.committedAttr(path, key)
	if err != nil {
		return err
	}
	inOpen := false
	if node, ok := w.openNode(path); ok {
		if _, has := node.Attributes()[key]; has {
			inOpen = true
			delete(node.Attributes(), key)
		}
	}
	if !inOpen && !inCommitted {
		return nil
	}
	if inCommitted {
		node, terr := w.ensureAttrTarget(path)
		if terr != nil {
			return terr
		}
		node.Attributes()[key] = model.DeletedValue()
	}
	w.l.Debug("deleted attribute", zap.String("path", model.AttrPath(path, key)))
	return nil
}

// Commit seals the container under construction: the tree is serialized,
// the content hash computed and frozen, and the container becomes
// permanently read-only. The session is closed afterwards.
//
// Committing a session with no recorded operations is permitted and
// produces a no-op patch.
func (w *WritableChain) Commit() (*container.Container, error) {
	if err := w.guardOpen(); err != nil {
		return nil, err
	}
	if err := w.cont.Seal(); err != nil {
		return nil, err
	}
	w.closed = true
	w.l.Info("committed container",
		zap.String("record", w.cont.Header.RecordID.String()),
		zap.Uint64("patch_index", w.cont.Header.PatchIndex),
		zap.String("content_hash", w.cont.Header.ContentHash),
	)
	return w.cont, nil
}

// Discard abandons the session. Nothing of it ever becomes visible.
func (w *WritableChain) Discard() error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	w.closed = true
	w.l.Debug("discarded patch session",
		zap.String("record", w.cont.Header.RecordID.String()),
		zap.Uint64("patch_index", w.cont.Header.PatchIndex),
	)
	return nil
}
