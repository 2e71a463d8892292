// Package cart mutates the cart embedded in an account record. Every
// mutation rewrites the whole account; two concurrent writers to the same
// cart race and the later save wins.
package cart

import (
	"context"

	"shophub/apperr"
	"shophub/models"
	"shophub/rdx"
	"shophub/store"
)

type CartStore struct {
	accounts store.AccountStore
	products store.ProductStore
	cache    rdx.Invalidator
}

func NewCartStore(accounts store.AccountStore, products store.ProductStore, cache rdx.Invalidator) *CartStore {
	return &CartStore{accounts: accounts, products: products, cache: cache}
}

func indexOf(lines []models.CartLine, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *CartStore) account(ctx context.Context, id models.Identity) (*models.Account, error) {
	if id.AccountID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	return c.accounts.FindByID(ctx, id.AccountID)
}

func (c *CartStore) commit(ctx context.Context, acc *models.Account, msg string) (*models.CartResult, error) {
	if err := c.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	rdx.Evict(ctx, c.cache, acc.Email)
	lines := acc.CartItems
	if lines == nil {
		lines = []models.CartLine{}
	}
	return &models.CartResult{Message: msg, CartItems: lines}, nil
}

// Add appends productID with quantity 1.
func (c *CartStore) Add(ctx context.Context, id models.Identity, productID string) (*models.CartResult, error) {
	acc, err := c.account(ctx, id)
	if err != nil {
		return nil, err
	}
	if indexOf(acc.CartItems, productID) >= 0 {
		return nil, apperr.Conflict("product already exists in cart")
	}
	if _, err := c.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	acc.CartItems = append(acc.CartItems, models.CartLine{ProductID: productID, Quantity: 1})
	return c.commit(ctx, acc, "Product added to cart")
}

// UpdateQuantity sets the quantity of an existing line.
func (c *CartStore) UpdateQuantity(ctx context.Context, id models.Identity, productID string, qty int) (*models.CartResult, error) {
	if qty < 1 {
		return nil, apperr.InvalidArgument("quantity must be at least 1")
	}
	acc, err := c.account(ctx, id)
	if err != nil {
		return nil, err
	}
	i := indexOf(acc.CartItems, productID)
	if i < 0 {
		return nil, apperr.NotFound("cart item")
	}

	acc.CartItems[i].Quantity = qty
	return c.commit(ctx, acc, "Cart quantity updated")
}

// Remove deletes the line for productID. A missing line is not an error and
// nothing is written.
func (c *CartStore) Remove(ctx context.Context, id models.Identity, productID string) (*models.CartResult, error) {
	acc, err := c.account(ctx, id)
	if err != nil {
		return nil, err
	}
	i := indexOf(acc.CartItems, productID)
	if i < 0 {
		lines := acc.CartItems
		if lines == nil {
			lines = []models.CartLine{}
		}
		return &models.CartResult{Message: "Product removed from cart", CartItems: lines}, nil
	}

	acc.CartItems = append(acc.CartItems[:i], acc.CartItems[i+1:]...)
	return c.commit(ctx, acc, "Product removed from cart")
}
