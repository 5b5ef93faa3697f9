package model

import (
	"github.com/oneconcern/datapatch/pkg/errors"
)

var (
	// ErrReservedValue indicates an attempt to store a payload equal to one
	// of the reserved marker byte sequences (deletion, stub)
	ErrReservedValue = errors.New("value collides with a reserved marker")

	// ErrReservedKey indicates an attempt to use the reserved pass-through
	// marker as an attribute key
	ErrReservedKey = errors.New("attribute key is reserved")

	// ErrInvalidPath indicates a malformed tree path
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidKey indicates a malformed path segment or attribute key
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidHeader indicates an inconsistent container header
	ErrInvalidHeader = errors.New("invalid container header")
)
