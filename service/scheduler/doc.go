// Package scheduler owns the outer posting loop: generate a draft, render
// its preview image, route it through the approval layer and publish or skip
// based on the outcome, then sleep a randomized interval before the next
// cycle. A manual wake request breaks the sleep early; failures put the loop
// into a short error backoff instead of terminating it.
package scheduler
