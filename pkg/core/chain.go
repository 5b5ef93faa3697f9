package core

import (
	"github.com/google/uuid"

	"github.com/oneconcern/datapatch/pkg/container"
	"github.com/oneconcern/datapatch/pkg/core/status"
	"github.com/oneconcern/datapatch/pkg/errors"
)

// Chain is an ordered sequence of containers forming one coherent record:
// a base container followed by patches with consecutive indices, matching
// record identity and intact linkage and content hashes.
//
// A Chain can only be obtained through ValidateChain (or Extend), so
// holding one certifies that validation has passed.
type Chain struct {
	containers []*container.Container
}

// ValidateChain verifies that the given containers, in array order, form
// one coherent record. Checks run in order and fail fast on the first
// violation, reporting the offending container index and reason. A chain
// is never silently repaired.
//
// An uncommitted container is legal only as the last element. Content
// hashes of all committed containers are verified eagerly, so subsequent
// resolution never needs to re-check integrity.
func ValidateChain(containers []*container.Container) (*Chain, error) {
	if len(containers) == 0 {
		return nil, chainErr("chain is empty", 0)
	}

	first := containers[0].Header
	if err := first.Validate(); err != nil {
		return nil, errors.New("bad container header").WithIndex(0).
			Wrap(err)
	}
	if first.PrevPatchID != nil {
		return nil, chainErr("first container must not link to a predecessor", 0)
	}

	seen := map[uuid.UUID]bool{first.PatchID: true}
	for i := 1; i < len(containers); i++ {
		h := containers[i].Header
		prev := containers[i-1].Header
		if err := h.Validate(); err != nil {
			return nil, errors.New("bad container header").WithIndex(i).
				Wrap(err)
		}
		if h.RecordID != first.RecordID {
			return nil, chainErr("record identity differs from base container", i)
		}
		if h.PatchIndex != prev.PatchIndex+1 {
			return nil, chainErr("patch indices must increase without gaps", i)
		}
		if h.PrevPatchID == nil {
			return nil, chainErr("patch container must link to a predecessor", i)
		}
		if *h.PrevPatchID != prev.PatchID {
			return nil, chainErr("linkage broken: predecessor patch id mismatch", i)
		}
		if h.IsStub {
			// a stub adopts another chain's head identity: it can only
			// ever stand in for a base container
			return nil, chainErr("only the first container may be a stub", i)
		}
		if seen[h.PatchID] {
			return nil, chainErr("duplicate patch id", i)
		}
		seen[h.PatchID] = true
	}

	for i, c := range containers {
		if !c.Committed() {
			if i != len(containers)-1 {
				return nil, chainErr("uncommitted container before the end of the chain", i)
			}
			continue
		}
		if err := c.Verify(); err != nil {
			return nil, errors.New("content hash verification failed").
				WithIndex(i).Wrap(status.ErrInvalidChain)
		}
	}

	return &Chain{containers: containers}, nil
}

func chainErr(reason string, index int) error {
	return errors.New(reason).WithIndex(index).Wrap(status.ErrInvalidChain)
}

// Len is the number of containers in the chain
func (c *Chain) Len() int {
	return len(c.containers)
}

// Containers returns the chain's containers in patch order. The slice is
// a copy; the containers themselves are shared and must not be mutated.
func (c *Chain) Containers() []*container.Container {
	out := make([]*container.Container, len(c.containers))
	copy(out, c.containers)
	return out
}

// Head returns the most recent container of the chain
func (c *Chain) Head() *container.Container {
	return c.containers[len(c.containers)-1]
}

// RecordID is the record identity shared by all containers of the chain
func (c *Chain) RecordID() uuid.UUID {
	return c.containers[0].Header.RecordID
}

// ContainsStub reports the index of the first stub container, if any
func (c *Chain) ContainsStub() (int, bool) {
	for i, cont := range c.containers {
		if cont.Header.IsStub {
			return i, true
		}
	}
	return 0, false
}

// Extend returns a new validated chain with one more container on top.
// The receiver is unchanged.
func (c *Chain) Extend(cont *container.Container) (*Chain, error) {
	containers := make([]*container.Container, 0, len(c.containers)+1)
	containers = append(containers, c.containers...)
	containers = append(containers, cont)
	return ValidateChain(containers)
}
