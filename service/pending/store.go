// Package pending defines the durable record of drafts awaiting a reviewer
// decision. The store survives process restarts; drafts left behind by a
// crashed review are surfaced and purged at next startup.
package pending

import (
	"context"

	"github.com/mechapengu/postpilot/model"
)

// Store is a durable mapping from draft id to draft. Implementations must
// never partial-write in place: a failed mutation leaves the previously
// committed state intact.
type Store interface {
	// Put inserts or replaces a draft. Full-document rewrite is acceptable,
	// volume is single-digit concurrent drafts.
	Put(ctx context.Context, draft *model.Draft) error

	// Get returns the draft or nil when absent or already resolved.
	Get(ctx context.Context, id string) (*model.Draft, error)

	// Remove deletes a draft. Removing a missing id is a no-op, not an error.
	Remove(ctx context.Context, id string) error

	// List returns all pending drafts keyed by id, used to detect stale
	// drafts referenced by stale callback identifiers after a restart.
	List(ctx context.Context) (map[string]*model.Draft, error)
}
