package localcache

import (
	"context"
	"errors"
	"testing"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStorage_Get(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns stored value", func(mt *mtest.T) {
		s := NewMongoStorageFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.kv_cache", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "hidden:u1:c1"},
			{Key: "value", Value: []byte(`["s1"]`)},
		}))

		v, err := s.Get(context.Background(), "hidden:u1:c1")
		require.NoError(t, err)
		assert.Equal(t, `["s1"]`, string(v))
	})

	mt.Run("missing key is a miss", func(mt *mtest.T) {
		s := NewMongoStorageFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.kv_cache", mtest.FirstBatch))

		_, err := s.Get(context.Background(), "nope")
		assert.True(t, errors.Is(err, ErrMiss))
	})

	mt.Run("server error is a transport error", func(mt *mtest.T) {
		s := NewMongoStorageFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
		}))

		_, err := s.Get(context.Background(), "k")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrTransport))
	})
}

func TestMongoStorage_PutAndDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upserts", func(mt *mtest.T) {
		s := NewMongoStorageFromCollection(mt.Coll)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 1},
			{Key: "nModified", Value: 0},
			{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "k"}}}},
		})

		assert.NoError(t, s.Put(context.Background(), "k", []byte("v")))
	})

	mt.Run("deletes", func(mt *mtest.T) {
		s := NewMongoStorageFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(t, s.Delete(context.Background(), "k"))
	})

	mt.Run("write error", func(mt *mtest.T) {
		s := NewMongoStorageFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := s.Put(context.Background(), "k", []byte("v"))
		assert.True(t, errors.Is(err, apperr.ErrTransport))
	})
}

func TestHiddenSet_OnMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reads a stored set", func(mt *mtest.T) {
		h := NewHiddenSet(NewMongoStorageFromCollection(mt.Coll))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.kv_cache", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: hiddenKey("u1", "c1")},
			{Key: "value", Value: []byte(`["a","b"]`)},
		}))

		ids, err := h.Get(context.Background(), "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
}
