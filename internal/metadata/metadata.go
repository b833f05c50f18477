// Package metadata is a free-form side-store for operator-attached
// key/value annotations on any entity (payment, refund, dispute), kept
// out of the primary JSON snapshots so arbitrary operator tags never
// collide with state-machine-owned fields. Grounded on the teacher's
// mongodb adapter pattern (components/crm/internal/adapters/mongodb),
// simplified to the bare mongo-driver API since the teacher's own
// wrapper depends on its unfetchable internal lib-commons module.
package metadata

import (
	"context"
	"time"

	"github.com/iancoleman/strcase"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document is one entity's metadata record.
type Document struct {
	EntityType string         `bson:"entity_type" json:"entity_type"`
	EntityID   string         `bson:"entity_id" json:"entity_id"`
	Data       map[string]any `bson:"data" json:"data"`
	UpdatedAt  time.Time      `bson:"updated_at" json:"updated_at"`
}

// Store reads and writes metadata.Document records in a single
// collection keyed by (entity_type, entity_id).
type Store struct {
	collection *mongo.Collection
}

// Connect dials uri and returns a Store backed by database.metadata,
// creating the compound unique index on first use.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	coll := client.Database(database).Collection("metadata")

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &Store{collection: coll}, nil
}

// NewWithCollection wraps an already-opened collection, useful for tests
// against a mongo test container.
func NewWithCollection(coll *mongo.Collection) *Store {
	return &Store{collection: coll}
}

// Merge upserts data into the existing document for (entityType,
// entityID), overwriting any keys that collide and leaving the rest.
func (s *Store) Merge(ctx context.Context, entityType, entityID string, data map[string]any) error {
	existing, err := s.Get(ctx, entityType, entityID)
	if err != nil && err != mongo.ErrNoDocuments {
		return err
	}

	merged := existing.Data
	if merged == nil {
		merged = map[string]any{}
	}

	// Keys are normalized to snake_case so an operator tagging the same
	// field with different casing ("riskScore" vs "risk_score") merges
	// into one key instead of two.
	for k, v := range data {
		merged[strcase.ToSnake(k)] = v
	}

	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	update := bson.M{"$set": bson.M{
		"entity_type": entityType,
		"entity_id":   entityID,
		"data":        merged,
		"updated_at":  time.Now().UTC(),
	}}

	_, err = s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))

	return err
}

// Get returns the metadata document for an entity, or mongo.ErrNoDocuments
// if none exists yet.
func (s *Store) Get(ctx context.Context, entityType, entityID string) (Document, error) {
	var doc Document

	err := s.collection.FindOne(ctx, bson.M{"entity_type": entityType, "entity_id": entityID}).Decode(&doc)
	if err != nil {
		return Document{}, err
	}

	return doc, nil
}

// Delete removes an entity's metadata document entirely.
func (s *Store) Delete(ctx context.Context, entityType, entityID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"entity_type": entityType, "entity_id": entityID})

	return err
}
