// Package rand generates throwaway test payloads
package rand

import (
	"math/rand"
	"sync"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	mu   sync.Mutex
	rgen = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec
)

// Bytes returns n random bytes
func Bytes(n int) []byte {
	buf := make([]byte, n)
	mu.Lock()
	_, _ = rgen.Read(buf)
	mu.Unlock()
	return buf
}

// LetterString returns a random string over [a-z0-9], usable as a record
// name or path segment
func LetterString(n int) string {
	buf := Bytes(n)
	for i, b := range buf {
		buf[i] = letters[int(b)%len(letters)]
	}
	return string(buf)
}
