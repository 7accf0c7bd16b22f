package localcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
)

// CollectionName is the MongoDB collection holding cache entries.
const CollectionName = "kv_cache"

type entry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage keeps entries in a MongoDB collection, one document per key.
type MongoStorage struct {
	Client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStorage connects to uri and uses dbName's kv_cache collection.
func NewMongoStorage(ctx context.Context, uri, dbName string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStorage{Client: client, coll: client.Database(dbName).Collection(CollectionName)}, nil
}

// NewMongoStorageFromCollection wraps an existing collection.
func NewMongoStorageFromCollection(coll *mongo.Collection) *MongoStorage {
	return &MongoStorage{Client: coll.Database().Client(), coll: coll}
}

func (m *MongoStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var e entry
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("find cache entry: %w: %w", apperr.ErrTransport, err)
	}
	return e.Value, nil
}

func (m *MongoStorage) Put(ctx context.Context, key string, value []byte) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "value", Value: value},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	_, err := m.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: key}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w: %w", apperr.ErrTransport, err)
	}
	return nil
}

func (m *MongoStorage) Delete(ctx context.Context, key string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("delete cache entry: %w: %w", apperr.ErrTransport, err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoStorage) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
