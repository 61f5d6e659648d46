package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the mongo store.
const (
	CollectionUsers      = "users"
	CollectionDocuments  = "documents"
	CollectionChunks     = "chunks"
	CollectionChats      = "chats"
	CollectionTemplates  = "prompt_templates"
	CollectionSelections = "model_selections"
	CollectionCounters   = "counters"
)

func New(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb failed: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongodb failed: %w", err)
	}

	db := client.Database(dbName)
	if err := createIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("create mongodb indexes failed: %w", err)
	}
	return client, db, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionDocuments: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "seq", Value: 1}}},
		},
		CollectionChunks: {
			{Keys: bson.D{{Key: "source_chunk_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "seq", Value: 1}}},
		},
		CollectionChats: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "seq", Value: 1}}},
		},
		CollectionTemplates: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionSelections: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
