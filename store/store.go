// Package store holds the persistence collaborators. Each store does exact-key
// lookups and whole-document saves; nothing here coordinates writes across
// records.
package store

import (
	"context"

	"shophub/models"
)

type AccountStore interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Save(ctx context.Context, a *models.Account) error
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]models.Account, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Save(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]models.Product, error)
}

type AddressStore interface {
	FindByID(ctx context.Context, id string) (*models.Address, error)
	Save(ctx context.Context, a *models.Address) error
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]models.Address, error)
}

type OrderStore interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	Save(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]models.Order, error)
}

// IdempotencyStore backs the Idempotency-Key middleware.
type IdempotencyStore interface {
	// Reserve inserts rec; it returns false when the key already exists.
	Reserve(ctx context.Context, rec models.IdempotencyRecord) (bool, error)
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Complete(ctx context.Context, key string, response map[string]any) error
	// Release drops an uncompleted reservation so the key can be retried.
	Release(ctx context.Context, key string) error
}

// Stores bundles one backend's stores.
type Stores struct {
	Accounts    AccountStore
	Products    ProductStore
	Addresses   AddressStore
	Orders      OrderStore
	Idempotency IdempotencyStore
}
