package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the repositories.
const (
	UsersCollection  = "users"
	AdminsCollection = "admins"
	SweetsCollection = "sweets"
)

// Connect opens a MongoDB client, verifies the connection with a ping and
// returns the handle for the configured database. Both components share the
// client's connection pool; teardown is the caller's responsibility via
// Disconnect on the returned client.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(25).
		SetMaxConnIdleTime(30 * time.Minute)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the query engine relies on. Identity
// uniqueness is enforced per realm; catalog indexes back filtering and the
// default newest-first ordering.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	identity := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
	}
	if _, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, identity); err != nil {
		return err
	}
	if _, err := db.Collection(AdminsCollection).Indexes().CreateMany(ctx, identity); err != nil {
		return err
	}

	sweets := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "isFeatured", Value: 1}}},
		{Keys: bson.D{{Key: "rating.average", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	_, err := db.Collection(SweetsCollection).Indexes().CreateMany(ctx, sweets)
	return err
}
