package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections groups the handles the stores operate on.
type Collections struct {
	Client      *mongo.Client
	Users       *mongo.Collection
	Products    *mongo.Collection
	Addresses   *mongo.Collection
	Orders      *mongo.Collection
	Idempotency *mongo.Collection
}

// EmailCollation makes email lookups and uniqueness case-insensitive.
var EmailCollation = &options.Collation{Locale: "en", Strength: 2}

// Connect opens the Mongo client and pings it.
func Connect(ctx context.Context, uri, database string) (*Collections, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	dbh := client.Database(database)
	log.Printf("Connected to MongoDB database %q", database)
	return &Collections{
		Client:      client,
		Users:       dbh.Collection("users"),
		Products:    dbh.Collection("products"),
		Addresses:   dbh.Collection("addresses"),
		Orders:      dbh.Collection("orders"),
		Idempotency: dbh.Collection("idempotency"),
	}, nil
}

// EnsureIndexes creates the unique email index and the idempotency indexes
// (unique key + TTL).
func (c *Collections) EnsureIndexes(ctx context.Context) error {
	_, err := c.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true).SetCollation(EmailCollation).SetName("unique_email"),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}

	_, err = c.Orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"userId": 1},
		Options: options.Index().SetName("orders_by_user"),
	})
	if err != nil {
		return fmt.Errorf("orders index: %w", err)
	}

	idxs := []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expires_at": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
	if _, err := c.Idempotency.Indexes().CreateMany(ctx, idxs); err != nil {
		return fmt.Errorf("idempotency indexes: %w", err)
	}
	return nil
}

func (c *Collections) Disconnect(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
