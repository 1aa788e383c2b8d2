package profile

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores profiles in a MongoDB collection keyed by the
// learner's messaging identity.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates the repository and ensures the unique index
// on externalId.
func NewMongoRepository(ctx context.Context, db *mongo.Database, collection string) (*MongoRepository, error) {
	col := db.Collection(collection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure profile index: %w", err)
	}
	return &MongoRepository{col: col}, nil
}

func (r *MongoRepository) LoadOrCreate(ctx context.Context, externalID, firstName string) (*UserProfile, error) {
	var p UserProfile
	err := r.col.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("load profile %s: %w", externalID, err)
	}

	fresh := New(externalID, firstName)
	if _, err := r.col.InsertOne(ctx, fresh); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a create race, the winner's document is authoritative.
			if err := r.col.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&p); err != nil {
				return nil, fmt.Errorf("load profile %s after race: %w", externalID, err)
			}
			return &p, nil
		}
		return nil, fmt.Errorf("create profile %s: %w", externalID, err)
	}
	return fresh, nil
}

func (r *MongoRepository) Save(ctx context.Context, p *UserProfile) error {
	p.UpdatedAt = time.Now()
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"externalId": p.ExternalID},
		p,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.ExternalID, err)
	}
	return nil
}
