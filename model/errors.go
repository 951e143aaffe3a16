package model

import "errors"

// Failure taxonomy shared across the pipeline. Using sentinel variables
// allows callers to reliably classify failures via errors.Is instead of
// brittle string comparisons. All of them are caught at the scheduler
// boundary and mapped to a shortened backoff, never process termination.

var (
	// ErrGenerationFailed indicates a malformed or missing text-generation
	// response (upstream error, empty choices, unparsable content).
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrImageFailed indicates the image could not be synthesized or
	// materialized locally.
	ErrImageFailed = errors.New("image synthesis failed")

	// ErrChannelUnavailable indicates the review channel could not deliver
	// the draft. Unlike a timeout it is non-terminal for the cycle: callers
	// may retry the send or fall back to direct publishing.
	ErrChannelUnavailable = errors.New("review channel unavailable")

	// ErrPublishFailed indicates the platform rejected or never received
	// the post.
	ErrPublishFailed = errors.New("publish failed")

	// ErrTimeout indicates the review window elapsed without a decision.
	ErrTimeout = errors.New("approval timed out")

	// ErrStoreIO indicates a read or write failure on the backing medium of
	// a durable store. Previously committed state stays intact.
	ErrStoreIO = errors.New("store io failure")
)
