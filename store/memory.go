package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"shophub/apperr"
	"shophub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// NewMemory returns stores that keep bson-encoded documents in process memory.
// Documents are copied on every read and write, so callers never share state
// with the store, the same as with a real document database.
func NewMemory() *Stores {
	accounts := newMemTable[models.Account]("user", accountMeta)
	accounts.unique = func(a *models.Account) string { return strings.ToLower(a.Email) }
	return &Stores{
		Accounts:    &memAccounts{accounts},
		Products:    &memProducts{newMemTable[models.Product]("product", productMeta)},
		Addresses:   &memAddresses{newMemTable[models.Address]("address", addressMeta)},
		Orders:      &memOrders{newMemTable[models.Order]("order", orderMeta)},
		Idempotency: &memIdempotency{records: make(map[string]models.IdempotencyRecord)},
	}
}

type memTable[T any] struct {
	mu     sync.RWMutex
	entity string
	meta   meta[T]
	docs   map[string][]byte
	order  []string
	// unique returns the value that must be unique across documents, or "".
	unique func(*T) string
}

func newMemTable[T any](entity string, m meta[T]) *memTable[T] {
	return &memTable[T]{entity: entity, meta: m, docs: make(map[string][]byte)}
}

func (t *memTable[T]) decode(raw []byte) (*T, error) {
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return nil, apperr.Internal(fmt.Errorf("decode %s: %w", t.entity, err))
	}
	return &v, nil
}

func (t *memTable[T]) findByID(id string) (*T, error) {
	t.mu.RLock()
	raw, ok := t.docs[id]
	t.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound(t.entity)
	}
	return t.decode(raw)
}

func (t *memTable[T]) find(match func(*T) bool) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		v, err := t.decode(t.docs[id])
		if err != nil {
			return nil, err
		}
		if match(v) {
			return v, nil
		}
	}
	return nil, apperr.NotFound(t.entity)
}

func (t *memTable[T]) save(v *T) error {
	stamp(t.meta, v, uuid.NewString)
	id, _, _ := t.meta(v)

	raw, err := bson.Marshal(v)
	if err != nil {
		return apperr.Internal(fmt.Errorf("encode %s: %w", t.entity, err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unique != nil {
		key := t.unique(v)
		for _, other := range t.order {
			if other == *id {
				continue
			}
			ov, err := t.decode(t.docs[other])
			if err != nil {
				return err
			}
			if key != "" && t.unique(ov) == key {
				return apperr.Conflict(t.entity + " already exists")
			}
		}
	}
	if _, exists := t.docs[*id]; !exists {
		t.order = append(t.order, *id)
	}
	t.docs[*id] = raw
	return nil
}

func (t *memTable[T]) delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.docs[id]; !ok {
		return apperr.NotFound(t.entity)
	}
	delete(t.docs, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *memTable[T]) findAll() ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		v, err := t.decode(t.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

type memAccounts struct{ *memTable[models.Account] }

func (s *memAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	return s.findByID(id)
}

func (s *memAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *memAccounts) Save(_ context.Context, a *models.Account) error { return s.save(a) }

func (s *memAccounts) Delete(_ context.Context, id string) error { return s.delete(id) }
func (s *memAccounts) FindAll(_ context.Context) ([]models.Account, error) {
	return s.findAll()
}

type memProducts struct{ *memTable[models.Product] }

func (s *memProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	return s.findByID(id)
}

func (s *memProducts) Save(_ context.Context, p *models.Product) error { return s.save(p) }
func (s *memProducts) Delete(_ context.Context, id string) error       { return s.delete(id) }
func (s *memProducts) FindAll(_ context.Context) ([]models.Product, error) {
	return s.findAll()
}

type memAddresses struct{ *memTable[models.Address] }

func (s *memAddresses) FindByID(_ context.Context, id string) (*models.Address, error) {
	return s.findByID(id)
}

func (s *memAddresses) Save(_ context.Context, a *models.Address) error { return s.save(a) }
func (s *memAddresses) Delete(_ context.Context, id string) error       { return s.delete(id) }
func (s *memAddresses) FindAll(_ context.Context) ([]models.Address, error) {
	return s.findAll()
}

type memOrders struct{ *memTable[models.Order] }

func (s *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	return s.findByID(id)
}

func (s *memOrders) Save(_ context.Context, o *models.Order) error { return s.save(o) }
func (s *memOrders) Delete(_ context.Context, id string) error     { return s.delete(id) }
func (s *memOrders) FindAll(_ context.Context) ([]models.Order, error) {
	return s.findAll()
}

type memIdempotency struct {
	mu      sync.Mutex
	records map[string]models.IdempotencyRecord
}

func (s *memIdempotency) Reserve(_ context.Context, rec models.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.records[rec.Key]; ok && (old.ExpiresAt.IsZero() || time.Now().Before(old.ExpiresAt)) {
		return false, nil
	}
	s.records[rec.Key] = rec
	return true, nil
}

func (s *memIdempotency) Find(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, apperr.NotFound("idempotency record")
	}
	return &rec, nil
}

func (s *memIdempotency) Complete(_ context.Context, key string, response map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return apperr.NotFound("idempotency record")
	}
	rec.Response = response
	s.records[key] = rec
	return nil
}

func (s *memIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
