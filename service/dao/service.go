// Package dao defines the minimal generic persistence contract shared by the
// entity stores (pending drafts, decisions). Concrete stores either embed the
// in-memory implementation under store/ or provide their own durable layout.
package dao

import (
	"context"
)

type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context) ([]*T, error)
}
