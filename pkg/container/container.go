// Package container implements the on-disk container format: a fixed-size
// administrative header block followed by the CBOR-encoded tree payload.
//
// The header block lives outside the tree namespace, so chain metadata can
// never be confused with user data, and it can be parsed without decoding
// the payload. The content hash stored in the header covers exactly the
// payload bytes after the block.
package container

import (
	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/fingerprint"
	"github.com/oneconcern/datapatch/pkg/model"
)

var (
	// ErrSealed indicates an attempt to modify or re-seal a committed container
	ErrSealed = errors.New("container is sealed")
	// ErrNotSealed indicates an integrity operation on a still-open container
	ErrNotSealed = errors.New("container is not sealed")
	// ErrFormat indicates a byte stream that is not a valid container
	ErrFormat = errors.New("not a valid container file")
)

// Container is one ordered, named unit of a record: a tree plus the chain
// metadata linking it to its predecessors. Once sealed it is permanently
// read-only input to its chain.
type Container struct {
	Header model.Header
	Root   *model.Group
}

// New assembles an open container from a header and a tree root
func New(header model.Header, root *model.Group) *Container {
	if root == nil {
		root = model.NewGroup(false)
	}
	return &Container{Header: header, Root: root}
}

// Committed tells whether this container has been sealed
func (c *Container) Committed() bool {
	return c.Header.Committed()
}

// Seal computes the content hash over the serialized payload and freezes
// it in the header. Sealing twice is an error: a committed container is
// never mutated again.
func (c *Container) Seal() error {
	if c.Committed() {
		return ErrSealed
	}
	digest, err := c.RecomputeHash()
	if err != nil {
		return err
	}
	c.Header.ContentHash = digest
	return nil
}

// RecomputeHash returns the qualified digest of the current payload bytes,
// without touching the header. Chain validation uses it for tamper
// detection against the stored hash.
func (c *Container) RecomputeHash() (string, error) {
	payload, err := c.Payload()
	if err != nil {
		return "", err
	}
	return fingerprint.SumBytes(payload), nil
}

// Verify recomputes the payload digest and compares it with the stored
// content hash
func (c *Container) Verify() error {
	if !c.Committed() {
		return ErrNotSealed
	}
	digest, err := c.RecomputeHash()
	if err != nil {
		return err
	}
	if digest != c.Header.ContentHash {
		return errors.New("content hash mismatch, container has been modified").
			Wrap(ErrFormat)
	}
	return nil
}
