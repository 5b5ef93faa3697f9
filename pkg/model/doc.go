// Package model describes the data model of patch-composable records:
// the tree nodes held by a single container (groups, datasets, attribute
// sets), the reserved deletion and stub sentinels, path manipulation
// helpers and the administrative header linking containers into a chain.
//
// The package is pure data and validation. It performs no I/O.
package model
