// Package progress defines primitives for reporting and aggregating the
// progress of the posting loop.  It abstracts away the underlying
// communication mechanism so that callers can consume counter updates in a
// uniform way regardless of whether they are delivered via callbacks,
// periodic snapshots or external observers.
package progress
