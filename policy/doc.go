// Package policy provides the declarative approval setting applied to a
// posting run – whether a human decision is required, optional or skipped,
// and how long a presented draft waits before expiring.
package policy
