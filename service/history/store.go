// Package history keeps the append-only sequence of previously published
// post texts. The most recent entries are fed back to the content generator
// so consecutive posts do not repeat themselves.
package history

import "context"

// Store is an ordered, append-only collection of published texts. Entries
// are never mutated or removed except by external truncation of the backing
// document.
type Store interface {
	// Append adds text at the end of the sequence and persists it.
	Append(ctx context.Context, text string) error

	// Recent returns up to n most recent texts in publication order.
	Recent(ctx context.Context, n int) ([]string, error)

	// All returns the full sequence in publication order.
	All(ctx context.Context) ([]string, error)
}

// Tail returns up to n trailing entries of texts, preserving order.
func Tail(texts []string, n int) []string {
	if n <= 0 || len(texts) == 0 {
		return nil
	}
	if len(texts) <= n {
		return texts
	}
	return texts[len(texts)-n:]
}
