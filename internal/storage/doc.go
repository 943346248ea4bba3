// Package storage defines the key-value driver contract consumed by the
// aggregate repositories, along with the stable storage key layout.
//
// A driver exposes atomic string-keyed operations over a persistent local
// store. Repositories are responsible for turning read failures into
// defaults and for propagating write failures; drivers report a missing key
// as ErrNotFound and everything else as a driver-level error.
package storage
