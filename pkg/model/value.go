package model

import (
	"bytes"
)

// DeletionMark is the reserved byte sequence standing for "this path or
// attribute no longer exists" when found as the most recent value in a
// chain. Real payloads equal to it are rejected at write time (ASCII DEL).
var DeletionMark = []byte{0x7f}

// StubMark is the reserved byte sequence encoding the stub marker in a
// serialized container (ASCII SUB, same code unit as the pass-through key).
var StubMark = []byte{0x1a}

// PassThroughKey is the reserved attribute key marking group substitution
// in the serialized form of a container (ASCII SUB). It never appears as a
// user attribute; within the model the distinction is carried by
// Group.Overwrite instead.
const PassThroughKey = "\x1a"

type valueKind uint8

const (
	valueData valueKind = iota
	valueDeleted
	valueStub
)

// Value is the payload of a dataset or attribute: either opaque data bytes,
// the deletion marker, or the stub marker ("real value exists upstream, not
// present here"). The payload is opaque to the patch algebra beyond equality.
type Value struct {
	kind valueKind
	data []byte
}

// NewValue wraps payload bytes into a Value.
//
// Payloads equal to the reserved deletion or stub marker sequences are
// rejected, so that neither marker can be forged through regular data.
func NewValue(data []byte) (Value, error) {
	if bytes.Equal(data, DeletionMark) || bytes.Equal(data, StubMark) {
		return Value{}, ErrReservedValue
	}
	return Value{kind: valueData, data: data}, nil
}

// MustValue is NewValue for payloads statically known to be unreserved. It
// panics on reserved input and is meant for tests and literals.
func MustValue(data []byte) Value {
	v, err := NewValue(data)
	if err != nil {
		panic(err)
	}
	return v
}

// DeletedValue returns the deletion marker
func DeletedValue() Value {
	return Value{kind: valueDeleted}
}

// StubValue returns the stub marker
func StubValue() Value {
	return Value{kind: valueStub}
}

// IsDeleted tells whether this value is the deletion marker
func (v Value) IsDeleted() bool {
	return v.kind == valueDeleted
}

// IsStub tells whether this value is the stub marker
func (v Value) IsStub() bool {
	return v.kind == valueStub
}

// Bytes returns the payload (nil for markers)
func (v Value) Bytes() []byte {
	if v.kind != valueData {
		return nil
	}
	return v.data
}

// Equal compares two values, markers included
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && bytes.Equal(v.data, o.data)
}

// MarshalSentinel returns the on-disk representation of marker values:
// markers are stored as their reserved byte sequences so that the container
// format stays self-describing without a side channel.
func (v Value) MarshalSentinel() []byte {
	switch v.kind {
	case valueDeleted:
		return DeletionMark
	case valueStub:
		return StubMark
	default:
		return v.data
	}
}

// UnmarshalSentinel rebuilds a Value from its on-disk representation,
// translating reserved sequences back into markers.
func UnmarshalSentinel(data []byte) Value {
	switch {
	case bytes.Equal(data, DeletionMark):
		return DeletedValue()
	case bytes.Equal(data, StubMark):
		return StubValue()
	default:
		return Value{kind: valueData, data: data}
	}
}
