// Package core implements the patch algebra over immutable container
// chains: chain integrity validation, overlay resolution of "most recent"
// values across a chain, the patch write protocol, merge/flatten and stub
// construction, plus the Record type tying a chain to a write-once store.
//
// A chain is only ever obtained through ValidateChain, so every overlay
// operation runs on containers whose linkage and content hashes have been
// verified eagerly. Containers are immutable once committed; all overlay
// state is recomputed on demand and resolution is a pure computation over
// already-loaded containers.
package core
