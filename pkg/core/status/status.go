// Package status exports errors produced by the core package.
package status

import (
	"github.com/oneconcern/datapatch/pkg/errors"
)

var (
	// ErrInvalidChain indicates a structural violation in a container
	// chain: mixed record identities, index gaps, broken linkage or a
	// content hash mismatch. Always fatal to the requested operation,
	// never auto-repaired.
	ErrInvalidChain = errors.New("invalid container chain")

	// ErrNotFound indicates a path or attribute that does not resolve.
	// Expected in normal use.
	ErrNotFound = errors.New("path or attribute not found")

	// ErrNotTraversable indicates a path walking through a dataset
	ErrNotTraversable = errors.New("path traverses through a dataset")

	// ErrStubNotMaterializable indicates a merge or full-data read on a
	// chain containing a stub container. Recoverable by supplying the
	// real containers.
	ErrStubNotMaterializable = errors.New("chain contains a stub, data is not materialized locally")

	// ErrReadOnly indicates a write on a record with no open patch
	ErrReadOnly = errors.New("record is read-only, create a patch first")

	// ErrPatchInProgress indicates an attempt to open a second concurrent
	// write session on one record
	ErrPatchInProgress = errors.New("a patch is already open, commit or discard it first")

	// ErrSessionClosed indicates a write on an already committed or
	// discarded patch session
	ErrSessionClosed = errors.New("write session is closed")

	// ErrBaseContainer indicates an operation that may not target the
	// base container, such as discarding it
	ErrBaseContainer = errors.New("operation not permitted on the base container")

	// ErrRecordExists indicates a record creation over existing containers
	ErrRecordExists = errors.New("record already exists")

	// ErrRecordNotFound indicates that no containers were found for a record
	ErrRecordNotFound = errors.New("no containers found for record")
)
