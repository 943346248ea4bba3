// Package wisdom owns the three-level progression hierarchy: skills at the
// top, skill points in the middle, tasks at the leaves.
//
// All three collections are persisted together as one aggregate under a
// single storage key, so the package exposes one Service that owns the
// in-memory state of every collection and performs every save as one
// complete snapshot. Experience flows upward: completing a task injects
// experience into its skill point, and a skill point that overflows its
// capacity forwards the full capacity amount to its parent skill, which is
// the only entity whose level rises from the cascade.
package wisdom
