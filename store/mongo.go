package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shophub/apperr"
	"shophub/db"
	"shophub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongo builds the Mongo-backed stores over c.
func NewMongo(c *db.Collections) *Stores {
	return &Stores{
		Accounts:    &mongoAccounts{newMongoCollection[models.Account](c.Users, "user", accountMeta)},
		Products:    &mongoProducts{newMongoCollection[models.Product](c.Products, "product", productMeta)},
		Addresses:   &mongoAddresses{newMongoCollection[models.Address](c.Addresses, "address", addressMeta)},
		Orders:      &mongoOrders{newMongoCollection[models.Order](c.Orders, "order", orderMeta)},
		Idempotency: &mongoIdempotency{coll: c.Idempotency},
	}
}

// meta exposes the id and timestamp fields of a document type.
type meta[T any] func(*T) (id *string, created, updated *time.Time)

func accountMeta(a *models.Account) (*string, *time.Time, *time.Time) {
	return &a.ID, &a.CreatedAt, &a.UpdatedAt
}

func productMeta(p *models.Product) (*string, *time.Time, *time.Time) {
	return &p.ID, &p.CreatedAt, &p.UpdatedAt
}

func addressMeta(a *models.Address) (*string, *time.Time, *time.Time) {
	return &a.ID, &a.CreatedAt, &a.UpdatedAt
}

func orderMeta(o *models.Order) (*string, *time.Time, *time.Time) {
	return &o.ID, &o.CreatedAt, &o.UpdatedAt
}

func stamp[T any](m meta[T], v *T, newID func() string) {
	id, created, updated := m(v)
	if *id == "" {
		*id = newID()
	}
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

type mongoCollection[T any] struct {
	coll   *mongo.Collection
	entity string
	meta   meta[T]
}

func newMongoCollection[T any](coll *mongo.Collection, entity string, m meta[T]) *mongoCollection[T] {
	return &mongoCollection[T]{coll: coll, entity: entity, meta: m}
}

func (c *mongoCollection[T]) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*T, error) {
	var v T
	if err := c.coll.FindOne(ctx, filter, opts...).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound(c.entity)
		}
		return nil, apperr.Internal(fmt.Errorf("find %s: %w", c.entity, err))
	}
	return &v, nil
}

// save replaces the whole document; a concurrent writer's changes are lost
// (last write wins).
func (c *mongoCollection[T]) save(ctx context.Context, v *T) error {
	stamp(c.meta, v, func() string { return primitive.NewObjectID().Hex() })
	id, _, _ := c.meta(v)
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": *id}, v, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict(c.entity + " already exists")
		}
		return apperr.Internal(fmt.Errorf("save %s: %w", c.entity, err))
	}
	return nil
}

func (c *mongoCollection[T]) delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete %s: %w", c.entity, err))
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(c.entity)
	}
	return nil
}

func (c *mongoCollection[T]) findAll(ctx context.Context) ([]T, error) {
	cur, err := c.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list %s: %w", c.entity, err))
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Internal(fmt.Errorf("decode %s list: %w", c.entity, err))
	}
	return out, nil
}

type mongoAccounts struct{ *mongoCollection[models.Account] }

func (s *mongoAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(db.EmailCollation))
}

func (s *mongoAccounts) Save(ctx context.Context, a *models.Account) error { return s.save(ctx, a) }
func (s *mongoAccounts) Delete(ctx context.Context, id string) error       { return s.delete(ctx, id) }
func (s *mongoAccounts) FindAll(ctx context.Context) ([]models.Account, error) {
	return s.findAll(ctx)
}

type mongoProducts struct{ *mongoCollection[models.Product] }

func (s *mongoProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoProducts) Save(ctx context.Context, p *models.Product) error { return s.save(ctx, p) }
func (s *mongoProducts) Delete(ctx context.Context, id string) error       { return s.delete(ctx, id) }
func (s *mongoProducts) FindAll(ctx context.Context) ([]models.Product, error) {
	return s.findAll(ctx)
}

type mongoAddresses struct{ *mongoCollection[models.Address] }

func (s *mongoAddresses) FindByID(ctx context.Context, id string) (*models.Address, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoAddresses) Save(ctx context.Context, a *models.Address) error { return s.save(ctx, a) }
func (s *mongoAddresses) Delete(ctx context.Context, id string) error       { return s.delete(ctx, id) }
func (s *mongoAddresses) FindAll(ctx context.Context) ([]models.Address, error) {
	return s.findAll(ctx)
}

type mongoOrders struct{ *mongoCollection[models.Order] }

func (s *mongoOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoOrders) Save(ctx context.Context, o *models.Order) error { return s.save(ctx, o) }
func (s *mongoOrders) Delete(ctx context.Context, id string) error     { return s.delete(ctx, id) }
func (s *mongoOrders) FindAll(ctx context.Context) ([]models.Order, error) {
	return s.findAll(ctx)
}

type mongoIdempotency struct {
	coll *mongo.Collection
}

func (s *mongoIdempotency) Reserve(ctx context.Context, rec models.IdempotencyRecord) (bool, error) {
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return true, nil
}

func (s *mongoIdempotency) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	if err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("idempotency record")
		}
		return nil, fmt.Errorf("find idempotency key: %w", err)
	}
	return &rec, nil
}

func (s *mongoIdempotency) Complete(ctx context.Context, key string, response map[string]any) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"response": response}})
	return err
}

func (s *mongoIdempotency) Release(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"key": key, "response": bson.M{"$exists": false}})
	return err
}
