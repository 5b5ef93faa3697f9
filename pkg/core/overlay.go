package core

import (
	"sort"

	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
)

// Overlay computes the effective view of a validated chain: the "most
// recent" value of every path and attribute, without materializing the
// whole tree.
//
// Resolution scans the chain backward per path prefix. Pass-through groups
// only ever add information, so the scan keeps walking past them until a
// substantive node (dataset, overwrite group or deletion marker) pins down
// the left boundary container from which children and attributes are
// collected forward.
//
// An overlay is a pure view over immutable containers: it holds no mutable
// chain state beyond a per-session memo of resolved boundaries, and it is
// cheap to recreate after the chain grows.
type Overlay struct {
	chain *Chain
	memo  map[string]int
}

// NewOverlay returns an overlay view of a validated chain
func NewOverlay(chain *Chain) *Overlay {
	return &Overlay{
		chain: chain,
		memo:  map[string]int{},
	}
}

// Entry is the resolved view of one path
type Entry struct {
	// Path of the entry, absolute
	Path string
	// Kind of the effective node
	Kind model.Kind
	// Value holds the dataset payload; it is the zero Value for groups
	Value model.Value
}

// nodeAt returns the node stored at path within the single container cidx,
// or false when the container does not mention the path (or a leaf blocks
// the descent within that container).
func (o *Overlay) nodeAt(cidx int, path string) (model.Node, bool) {
	var node model.Node = o.chain.containers[cidx].Root
	for _, seg := range model.SplitPath(path) {
		g, ok := node.(*model.Group)
		if !ok {
			return nil, false
		}
		child, ok := g.Children[seg]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

func isPassThrough(node model.Node) bool {
	g, ok := node.(*model.Group)
	return ok && !g.Overwrite
}

func isDeletionMark(node model.Node) bool {
	d, ok := node.(*model.Dataset)
	return ok && d.Value.IsDeleted()
}

// children maps each effective child key of the group at path to the index
// of its boundary container: for substantive children the most recent
// container defining them, for pass-through children the lowest container
// the pass-through chain reaches back to. Children whose most recent word
// is a deletion marker are excluded.
func (o *Overlay) children(path string, left int) map[string]int {
	bound := map[string]int{}
	passThrough := map[string]bool{}

	for i := len(o.chain.containers) - 1; i >= left; i-- {
		node, ok := o.nodeAt(i, path)
		if !ok {
			continue
		}
		g, ok := node.(*model.Group)
		if !ok {
			continue
		}
		for k, child := range g.Children {
			if _, seen := bound[k]; seen && !passThrough[k] {
				// a substantive occurrence already fixed the boundary
				continue
			}
			bound[k] = i
			passThrough[k] = isPassThrough(child)
		}
	}

	out := make(map[string]int, len(bound))
	for k, i := range bound {
		node, _ := o.nodeAt(i, model.JoinPath(path, k))
		if isDeletionMark(node) {
			continue
		}
		out[k] = i
	}
	return out
}

// attributes maps each effective attribute key of the node at path to the
// most recent container defining it, excluding deleted attributes.
// Unlike child groups, attribute slots are terminal: the most recent
// occurrence always wins outright.
func (o *Overlay) attributes(path string, left int) map[string]int {
	recent := map[string]int{}
	for i := len(o.chain.containers) - 1; i >= left; i-- {
		node, ok := o.nodeAt(i, path)
		if !ok {
			continue
		}
		for k := range node.Attributes() {
			if _, seen := recent[k]; !seen {
				recent[k] = i
			}
		}
	}

	out := make(map[string]int, len(recent))
	for k, i := range recent {
		node, _ := o.nodeAt(i, path)
		if node.Attributes()[k].IsDeleted() {
			continue
		}
		out[k] = i
	}
	return out
}

// findContainer returns the index of the boundary container that is the
// authoritative source for descendants and attributes of path. Every
// prefix boundary computed on the way down is memoized per overlay
// session, so sibling lookups skip the shared part of the walk.
func (o *Overlay) findContainer(path string) (int, error) {
	if err := model.ValidatePath(path); err != nil {
		return 0, err
	}

	cidx := 0
	cur := model.RootPath
	segs := model.SplitPath(path)
	for si, seg := range segs {
		next := model.JoinPath(cur, seg)
		idx, ok := o.memo[next]
		if !ok {
			idx, ok = o.children(cur, cidx)[seg]
			if !ok {
				return 0, errors.New("cannot resolve path").WithPath(path).
					Wrap(status.ErrNotFound)
			}
			o.memo[next] = idx
		}
		node, _ := o.nodeAt(idx, next)
		if node.Kind() == model.KindDataset && si != len(segs)-1 {
			return 0, errors.New("cannot descend through a dataset").WithPath(next).
				Wrap(status.ErrNotTraversable)
		}
		cur, cidx = next, idx
	}

	return cidx, nil
}

// Resolve computes the effective entry at path: the most recent dataset
// value, or the presence of a group. A deletion marker as the most recent
// word yields ErrNotFound; reading a stub value yields
// ErrStubNotMaterializable.
func (o *Overlay) Resolve(path string) (Entry, error) {
	cidx, err := o.findContainer(path)
	if err != nil {
		return Entry{}, err
	}
	node, ok := o.nodeAt(cidx, path)
	if !ok || isDeletionMark(node) {
		return Entry{}, errors.New("cannot resolve path").WithPath(path).
			Wrap(status.ErrNotFound)
	}
	switch n := node.(type) {
	case *model.Dataset:
		if n.Value.IsStub() {
			return Entry{}, errors.New("value lives in an upstream container").
				WithPath(path).WithIndex(cidx).Wrap(status.ErrStubNotMaterializable)
		}
		return Entry{Path: path, Kind: model.KindDataset, Value: n.Value}, nil
	default:
		return Entry{Path: path, Kind: model.KindGroup}, nil
	}
}

// ResolveAttr computes the effective value of one attribute at path
func (o *Overlay) ResolveAttr(path, key string) (model.Value, error) {
	if err := model.ValidateKey(key, true); err != nil {
		return model.Value{}, err
	}
	cidx, err := o.findContainer(path)
	if err != nil {
		return model.Value{}, err
	}
	idx, ok := o.attributes(path, cidx)[key]
	if !ok {
		return model.Value{}, errors.New("cannot resolve attribute").
			WithPath(model.AttrPath(path, key)).Wrap(status.ErrNotFound)
	}
	node, _ := o.nodeAt(idx, path)
	v := node.Attributes()[key]
	if v.IsStub() {
		return model.Value{}, errors.New("attribute value lives in an upstream container").
			WithPath(model.AttrPath(path, key)).WithIndex(idx).
			Wrap(status.ErrStubNotMaterializable)
	}
	return v, nil
}

// ListChildren returns the effective child keys of the group at path, in
// lexical order
func (o *Overlay) ListChildren(path string) ([]string, error) {
	cidx, err := o.findContainer(path)
	if err != nil {
		return nil, err
	}
	node, _ := o.nodeAt(cidx, path)
	if node.Kind() == model.KindDataset {
		return nil, errors.New("datasets have no children").WithPath(path).
			Wrap(status.ErrNotTraversable)
	}
	return sortedKeys(o.children(path, cidx)), nil
}

// ListAttributes returns the effective attribute keys of the node at path,
// in lexical order
func (o *Overlay) ListAttributes(path string) ([]string, error) {
	cidx, err := o.findContainer(path)
	if err != nil {
		return nil, err
	}
	return sortedKeys(o.attributes(path, cidx)), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
