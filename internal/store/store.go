package store

import (
	"context"
	"errors"

	"mermanager/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Fields a mutation payload may carry. Identity fields (id, owner_id,
// created_at) are never updatable.
var updatableFields = map[string]bool{
	"title":       true,
	"description": true,
	"price":       true,
	"cost":        true,
	"status":      true,
	"category":    true,
	"image_url":   true,
	"updated_at":  true,
}

// Store is the document-store boundary: one logical listings collection
// with an ownership filter, updated_at-descending order and push-based
// full-snapshot change notification, plus a small keyed identity bucket
// used by the auth adapter. Writes are last-write-wins; there are no
// transactions and no optimistic-concurrency checks.
type Store interface {
	// Subscribe invokes fn once immediately with the owner's current
	// snapshot (sorted by updated_at descending) and again after every
	// committed mutation on the collection, by any session. The returned
	// func tears the subscription down.
	Subscribe(ownerID string, fn func([]domain.Listing)) (func(), error)

	Get(ctx context.Context, id string) (domain.Listing, error)

	// Create assigns the id; the caller must have set owner_id and both
	// timestamps already.
	Create(ctx context.Context, l domain.Listing) (string, error)

	// Update merges the given fields into the record. The caller is
	// responsible for refreshing updated_at.
	Update(ctx context.Context, id string, fields map[string]any) error

	Delete(ctx context.Context, id string) error

	// Identity bucket: opaque JSON documents keyed by string, used to
	// persist the signed-in identity and session bindings across restarts.
	SaveIdentity(ctx context.Context, key string, doc []byte) error
	LoadIdentity(ctx context.Context, key string) ([]byte, error)
	DeleteIdentity(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
