package storage

import (
	"context"
	"io"
)

type errString string

func (e errString) Error() string { return string(e) }

const (
	// ErrNotFound indicates the requested object does not exist
	ErrNotFound errString = "not found"
	// ErrExists indicates an attempt to overwrite an existing object
	ErrExists errString = "exists already"
	// ErrNotSupported indicates the backend cannot perform the operation
	ErrNotSupported errString = "not supported"
)

// Store implementations know how to persist container objects on some
// write-once backend.
//
// Typically this is something file system-like. Implementations are assumed
// to be fairly simple; Put must create the object exclusively and fail with
// ErrExists if it is already there, so that a committed container can never
// be rewritten in place.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
}

// PipeIO copies all bytes from reader to writer
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	pr, pw := io.Pipe()
	errC := make(chan error, 1)
	go func() {
		defer pw.Close()
		_, err := io.Copy(pw, reader)
		errC <- err
	}()
	written, err := io.Copy(writer, pr)
	if err != nil {
		return written, err
	}
	if err = <-errC; err != nil {
		return written, err
	}
	return written, nil
}
