package blobstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Dial connects to MongoDB and verifies the connection.
func Dial(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type record struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo is a Store backed by a MongoDB collection. Record ids map to the
// collection's primary key; payloads are stored as BSON binary so byte
// sequences survive round trips untouched.
type Mongo struct {
	col *mongo.Collection
}

// NewMongo creates a Store on the given collection.
func NewMongo(db *mongo.Database, collection string) *Mongo {
	return &Mongo{col: db.Collection(collection)}
}

func (m *Mongo) Put(ctx context.Context, key string, payload []byte) error {
	_, err := m.col.ReplaceOne(ctx,
		bson.M{"_id": key},
		record{Key: key, Payload: payload, UpdatedAt: time.Now()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	var rec record
	err := m.col.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec.Payload, nil
}

func (m *Mongo) Delete(ctx context.Context, key string) error {
	if _, err := m.col.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (m *Mongo) DeleteAll(ctx context.Context) error {
	if _, err := m.col.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

func (m *Mongo) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cur, err := m.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s*: %w", prefix, err)
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var rec record
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("list %s*: %w", prefix, err)
		}
		keys = append(keys, rec.Key)
	}
	return keys, cur.Err()
}
