package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMergeUpsertsIntoExistingDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("merge into existing", func(mt *mtest.T) {
		s := NewWithCollection(mt.Coll)

		existing := mtest.CreateCursorResponse(1, "metadata.metadata", mtest.FirstBatch, bson.D{
			{Key: "entity_type", Value: "payment"},
			{Key: "entity_id", Value: "pi_1"},
			{Key: "data", Value: bson.D{{Key: "risk_score", Value: int32(10)}}},
		})
		killCursors := mtest.CreateCursorResponse(0, "metadata.metadata", mtest.NextBatch)
		mt.AddMockResponses(existing, killCursors)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(t, s.Merge(context.Background(), "payment", "pi_1", map[string]any{"note": "flagged"}))
	})
}

func TestMergeNormalizesKeysToSnakeCase(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("merge normalizes casing", func(mt *mtest.T) {
		s := NewWithCollection(mt.Coll)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "metadata.metadata", mtest.FirstBatch))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(t, s.Merge(context.Background(), "payment", "pi_1", map[string]any{"riskScore": 42}))
	})
}

func TestGetReturnsNoDocumentsErrorWhenAbsent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("get missing", func(mt *mtest.T) {
		s := NewWithCollection(mt.Coll)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "metadata.metadata", mtest.FirstBatch))

		_, err := s.Get(context.Background(), "payment", "pi_missing")
		require.Error(t, err)
	})
}

func TestDeleteRemovesDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("delete", func(mt *mtest.T) {
		s := NewWithCollection(mt.Coll)

		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 1},
		})

		err := s.Delete(context.Background(), "payment", "pi_1")
		require.NoError(t, err)
		assert.NoError(t, err)
	})
}
