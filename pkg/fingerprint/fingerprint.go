// Package fingerprint computes qualified content digests for container
// payloads.
//
// A qualified digest is a string of the shape "blake2b:<hex>", naming the
// algorithm alongside the digest so that containers written by future
// versions with a different algorithm remain verifiable.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/oneconcern/datapatch/pkg/errors"
)

// Algorithm qualifying digests produced by this package
const Algorithm = "blake2b"

// ErrMalformed indicates a digest string that is not of the "algo:hex" shape
var ErrMalformed = errors.New("malformed qualified digest")

// New returns the hash used for container payloads (blake2b-512)
func New() hash.Hash {
	return blake2b.New512()
}

// Sum computes the qualified digest of everything readable from r
func Sum(r io.Reader) (string, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Qualified(h.Sum(nil)), nil
}

// SumBytes computes the qualified digest of a byte slice
func SumBytes(data []byte) string {
	h := New()
	_, _ = h.Write(data)
	return Qualified(h.Sum(nil))
}

// Qualified renders a raw digest as "blake2b:<hex>"
func Qualified(digest []byte) string {
	return fmt.Sprintf("%s:%s", Algorithm, hex.EncodeToString(digest))
}

// Parse splits a qualified digest into algorithm and raw digest bytes
func Parse(qualified string) (string, []byte, error) {
	algo, hexDigest, found := strings.Cut(qualified, ":")
	if !found || algo == "" {
		return "", nil, ErrMalformed
	}
	digest, err := hex.DecodeString(hexDigest)
	if err != nil {
		return "", nil, ErrMalformed
	}
	return algo, digest, nil
}
