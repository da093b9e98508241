package sessions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get present", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll, "dev:")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mealbox.session_kv", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "dev:loginSource"}, {Key: "value", Value: "mobile"}}))
		v, ok, err := store.Get(ctx, "loginSource")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "mobile", v)
	})

	mt.Run("get absent", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll, "dev:")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mealbox.session_kv", mtest.FirstBatch))
		_, ok, err := store.Get(ctx, "authTokens")
		require.NoError(t, err)
		require.False(t, ok)
	})

	mt.Run("take returns deleted value", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll, "dev:")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value",
			Value: bson.D{{Key: "_id", Value: "dev:loginSource"}, {Key: "value", Value: "web"}}}))
		v, ok, err := store.Take(ctx, "loginSource")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "web", v)
	})

	mt.Run("set and delete", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll, "dev:")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(t, store.Set(ctx, "authTokens", "{}"))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(t, store.Delete(ctx, "authTokens"))
	})
}
