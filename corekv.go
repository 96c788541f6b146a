// Package corekv is the umbrella for a small set of in-memory core data
// structures, each importable independently:
//
//   - dstring: a length-prefixed, append-efficient byte buffer.
//   - dlist: a pointer-based doubly-linked list with dup/free/match hooks.
//   - iset: a sorted, duplicate-free integer set with adaptive element width.
//   - zlist: a compact, byte-packed dual-ended sequence.
//   - htab: an incrementally-rehashed chained hash table.
//
// The five are independent of one another (zlist and htab in particular
// share no types), and corekv itself exports nothing: it exists so the
// module has a root-level package doc describing how the pieces relate,
// the way store's own doc.go ties together index/primary/freelist
// without exposing a combined API.
package corekv
