package model

import (
	"github.com/google/uuid"

	"github.com/oneconcern/datapatch/pkg/errors"
)

const (
	// CurrentHeaderVersion is the version stamped on newly created headers
	CurrentHeaderVersion = 1
)

// Header is the administrative metadata of one container, stored in the
// reserved header block of the container file, outside the tree namespace.
// It links containers of one record into a chain and carries the payload
// digest for integrity verification.
type Header struct {
	RecordID    uuid.UUID  `json:"recordId" yaml:"recordId"`
	PatchID     uuid.UUID  `json:"patchId" yaml:"patchId"`
	PrevPatchID *uuid.UUID `json:"prevPatchId,omitempty" yaml:"prevPatchId,omitempty"`
	PatchIndex  uint64     `json:"patchIndex" yaml:"patchIndex"`

	// ContentHash is the qualified digest of the serialized tree payload.
	// It is empty exactly while the container is open for writing and
	// immutable once set.
	ContentHash string `json:"contentHash,omitempty" yaml:"contentHash,omitempty"`

	// IsStub marks a metadata-only container: structure and attribute keys
	// of a record without any payload data
	IsStub bool `json:"isStub,omitempty" yaml:"isStub,omitempty"`

	Version uint64 `json:"version" yaml:"version"`
	_       struct{}
}

// NewBaseHeader mints the header of a fresh base container, with a new
// record identity and patch index 0
func NewBaseHeader() Header {
	return Header{
		RecordID:   uuid.New(),
		PatchID:    uuid.New(),
		PatchIndex: 0,
		Version:    CurrentHeaderVersion,
	}
}

// NewPatchHeader mints the header of a patch container on top of the given
// predecessor header
func NewPatchHeader(prev Header) Header {
	prevID := prev.PatchID
	return Header{
		RecordID:    prev.RecordID,
		PatchID:     uuid.New(),
		PrevPatchID: &prevID,
		PatchIndex:  prev.PatchIndex + 1,
		Version:     CurrentHeaderVersion,
	}
}

// Committed tells whether the container this header belongs to has been
// sealed (its content hash computed and frozen)
func (h Header) Committed() bool {
	return h.ContentHash != ""
}

// Validate checks internal consistency of a header.
//
// A container without a predecessor link is a base container. Base
// containers usually carry patch index 0; merged and stub containers
// adopt the identity (patch id and index) of the chain head they were
// derived from, so a nonzero index without a predecessor is legal.
func (h Header) Validate() error {
	if h.RecordID == uuid.Nil || h.PatchID == uuid.Nil {
		return ErrInvalidHeader
	}
	if h.PatchIndex == 0 && h.PrevPatchID != nil {
		return errors.New("base container must not link to a predecessor").Wrap(ErrInvalidHeader)
	}
	return nil
}
