package model

import (
	"sort"

	"github.com/oneconcern/datapatch/pkg/errors"
)

// Kind discriminates the closed set of node variants
type Kind uint8

const (
	// KindGroup is an inner node holding children and attributes
	KindGroup Kind = iota + 1
	// KindDataset is a leaf node holding a value and attributes
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	default:
		return "unknown"
	}
}

// AttrSet maps attribute keys to values, with the same deletion semantics
// as dataset values
type AttrSet map[string]Value

// Node is a node of one container's tree: either *Group or *Dataset.
// The variant is closed so the resolution engine can match exhaustively.
type Node interface {
	Kind() Kind
	Attributes() AttrSet

	sealed()
}

// Group is an inner node. With Overwrite set it is substantive: at read
// time it fully replaces whatever existed at its path in earlier
// containers. Without it, the group is a pass-through carrier of
// incremental child and attribute edits.
type Group struct {
	Attrs     AttrSet
	Children  map[string]Node
	Overwrite bool
}

// NewGroup returns an empty group, substantive or pass-through
func NewGroup(overwrite bool) *Group {
	return &Group{
		Attrs:     AttrSet{},
		Children:  map[string]Node{},
		Overwrite: overwrite,
	}
}

// Kind of this node
func (g *Group) Kind() Kind { return KindGroup }

// Attributes of this node
func (g *Group) Attributes() AttrSet { return g.Attrs }

// ChildKeys returns the child names in lexical order
func (g *Group) ChildKeys() []string {
	keys := make([]string, 0, len(g.Children))
	for k := range g.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *Group) sealed() {}

// Dataset is a leaf node holding a value and its attribute set.
// Datasets are always substantive.
type Dataset struct {
	Attrs AttrSet
	Value Value
}

// NewDataset returns a dataset holding the given value
func NewDataset(v Value) *Dataset {
	return &Dataset{Attrs: AttrSet{}, Value: v}
}

// Kind of this node
func (d *Dataset) Kind() Kind { return KindDataset }

// Attributes of this node
func (d *Dataset) Attributes() AttrSet { return d.Attrs }

func (d *Dataset) sealed() {}

// ValidateTree checks the reserved-namespace restrictions on a container
// tree at ingestion time: no group or dataset may carry the pass-through
// marker as a user attribute key, and every child and attribute key must
// be well-formed.
//
// The path argument names the subtree root for error reporting; pass "/"
// for a whole container.
func ValidateTree(path string, node Node) error {
	if node == nil {
		return wrapAt(ErrInvalidPath, path)
	}
	for k := range node.Attributes() {
		if k == PassThroughKey {
			return wrapAt(ErrReservedKey, path)
		}
		if err := ValidateKey(k, true); err != nil {
			return wrapAt(err, path)
		}
	}
	g, ok := node.(*Group)
	if !ok {
		return nil
	}
	for k, child := range g.Children {
		if err := ValidateKey(k, false); err != nil {
			return wrapAt(err, path)
		}
		if err := ValidateTree(JoinPath(path, k), child); err != nil {
			return err
		}
	}
	return nil
}

func wrapAt(cause error, path string) error {
	return errors.New("invalid container tree").WithPath(path).Wrap(cause)
}
