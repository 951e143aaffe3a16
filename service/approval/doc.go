// Package approval implements the human-in-the-loop review layer. A draft is
// paused here until an explicit approve, edit or deny decision is recorded,
// or until its review window elapses.
package approval
