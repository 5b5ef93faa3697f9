package core

import (
	"github.com/oneconcern/datapatch/pkg/container"
	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
)

// Merge materializes the overlay of a validated chain into one concrete,
// patch-free container: a single substantive tree with no pass-through
// and no deletion markers, observationally identical to reading every
// path through the overlay.
//
// The merged container keeps the head's patch identity and index, with
// the predecessor link cleared: it stands alone as a base container.
func Merge(chain *Chain) (*container.Container, error) {
	if idx, stub := chain.ContainsStub(); stub {
		return nil, errors.New("cannot merge").WithIndex(idx).
			Wrap(status.ErrStubNotMaterializable)
	}

	o := NewOverlay(chain)
	root, err := flattenGroup(o, model.RootPath)
	if err != nil {
		return nil, err
	}

	header := chain.Head().Header
	header.PrevPatchID = nil
	header.ContentHash = ""

	merged := container.New(header, root)
	if err = merged.Seal(); err != nil {
		return nil, err
	}
	return merged, nil
}

func flattenGroup(o *Overlay, path string) (*model.Group, error) {
	g := model.NewGroup(true)
	if err := flattenAttrs(o, path, g.Attrs); err != nil {
		return nil, err
	}

	keys, err := o.ListChildren(path)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		childPath := model.JoinPath(path, k)
		entry, err := o.Resolve(childPath)
		if err != nil {
			return nil, err
		}
		switch entry.Kind {
		case model.KindDataset:
			d := model.NewDataset(entry.Value)
			if err = flattenAttrs(o, childPath, d.Attrs); err != nil {
				return nil, err
			}
			g.Children[k] = d
		default:
			child, err := flattenGroup(o, childPath)
			if err != nil {
				return nil, err
			}
			g.Children[k] = child
		}
	}
	return g, nil
}

func flattenAttrs(o *Overlay, path string, into model.AttrSet) error {
	keys, err := o.ListAttributes(path)
	if err != nil {
		return err
	}
	for _, k := range keys {
		v, err := o.ResolveAttr(path, k)
		if err != nil {
			return err
		}
		into[k] = v
	}
	return nil
}
