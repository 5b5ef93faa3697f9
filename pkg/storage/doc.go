// Package storage declares the write-once object store backing container
// persistence.
//
// Containers are whole-file immutable objects: a store never rewrites an
// existing object, so Put is always an exclusive create. Anything
// file-system-like can implement the interface; the localfs subpackage
// provides the canonical implementation over afero.
package storage
