// Package model contains the shared domain types of the posting pipeline:
// the Draft awaiting review, the terminal Decision produced for it and the
// error taxonomy used across the service layers.
//
// The types carry JSON tags because drafts and history survive process
// restarts as JSON documents on disk.
package model
