package core

import (
	"github.com/oneconcern/datapatch/pkg/container"
	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
)

// SkeletonNode describes one entry of a record's structural skeleton:
// its kind and the attribute keys it carries, without any payload data.
type SkeletonNode struct {
	Kind  model.Kind
	Attrs []string
	_     struct{}
}

// Skeleton enumerates the effective structure of a chain: every resolvable
// path mapped to its kind and attribute keys. Payload values are not
// touched, so a skeleton can also be taken over a chain based on a stub.
func Skeleton(chain *Chain) (map[string]SkeletonNode, error) {
	o := NewOverlay(chain)
	out := map[string]SkeletonNode{}
	if err := skeletonWalk(o, model.RootPath, out); err != nil {
		return nil, err
	}
	return out, nil
}

func skeletonWalk(o *Overlay, path string, out map[string]SkeletonNode) error {
	attrs, err := o.ListAttributes(path)
	if err != nil {
		return err
	}
	keys, err := o.ListChildren(path)
	if err != nil {
		if errors.Is(err, status.ErrNotTraversable) {
			out[path] = SkeletonNode{Kind: model.KindDataset, Attrs: attrs}
			return nil
		}
		return err
	}
	out[path] = SkeletonNode{Kind: model.KindGroup, Attrs: attrs}
	for _, k := range keys {
		if err := skeletonWalk(o, model.JoinPath(path, k), out); err != nil {
			return err
		}
	}
	return nil
}

// BuildStub derives a metadata-only snapshot of a chain: same record
// identity, same head patch identity and index, same tree structure and
// attribute keys, but every payload value replaced by a stub marker.
//
// A stub stands in for the full chain when authoring patches elsewhere:
// patches committed on top of it line up with the real chain and can be
// transferred back. The stub itself can never be read for payload data
// and never merged.
func BuildStub(chain *Chain) (*container.Container, error) {
	o := NewOverlay(chain)
	root, err := stubGroup(o, model.RootPath)
	if err != nil {
		return nil, err
	}

	header := chain.Head().Header
	header.PrevPatchID = nil
	header.ContentHash = ""
	header.IsStub = true

	stub := container.New(header, root)
	if err = stub.Seal(); err != nil {
		return nil, err
	}
	return stub, nil
}

func stubGroup(o *Overlay, path string) (*model.Group, error) {
	g := model.NewGroup(true)
	if err := stubAttrs(o, path, g.Attrs); err != nil {
		return nil, err
	}

	keys, err := o.ListChildren(path)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		childPath := model.JoinPath(path, k)
		if _, err = o.ListChildren(childPath); err == nil {
			child, gerr := stubGroup(o, childPath)
			if gerr != nil {
				return nil, gerr
			}
			g.Children[k] = child
			continue
		}
		if !errors.Is(err, status.ErrNotTraversable) {
			return nil, err
		}
		d := model.NewDataset(model.StubValue())
		if err = stubAttrs(o, childPath, d.Attrs); err != nil {
			return nil, err
		}
		g.Children[k] = d
	}
	return g, nil
}

func stubAttrs(o *Overlay, path string, into model.AttrSet) error {
	keys, err := o.ListAttributes(path)
	if err != nil {
		return err
	}
	for _, k := range keys {
		into[k] = model.StubValue()
	}
	return nil
}
