package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mealbox/mealbox/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newRestaurant() *models.Restaurant { return &models.Restaurant{} }

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get decodes document", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", newRestaurant)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mealbox.restaurants", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "r1"}, {Key: "name", Value: "Sol"}}))
		got, err := repo.Get(ctx, "r1")
		require.NoError(t, err)
		require.Equal(t, "Sol", got.Name)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", newRestaurant)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mealbox.restaurants", mtest.FirstBatch))
		_, err := repo.Get(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", newRestaurant)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		_, err := repo.Create(ctx, &models.Restaurant{ID: "r1", Name: "Sol"})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	mt.Run("create assigns id", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", newRestaurant)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		r := &models.Restaurant{Name: "Sol"}
		id, err := repo.Create(ctx, r)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.False(t, r.CreatedAt.IsZero())
	})

	mt.Run("page reports next cursor", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", newRestaurant)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mealbox.restaurants", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "a"}, {Key: "name", Value: "A"}},
			bson.D{{Key: "_id", Value: "b"}, {Key: "name", Value: "B"}},
			bson.D{{Key: "_id", Value: "c"}, {Key: "name", Value: "C"}}))
		page, err := repo.Page(ctx, PageRequest{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		require.Equal(t, "b", page.Next)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", newRestaurant)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		require.ErrorIs(t, repo.Delete(ctx, "gone"), ErrNotFound)
	})
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// An update replaces the record on both backends: fields missing from the new
// value are gone afterwards, and createdAt survives.
func TestUpdate_ClearsOmittedFieldsOnBothBackends(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	put := func() *models.User { return &models.User{UID: "u1", Name: "Ana"} }

	mem := NewMemoryRepo[*models.User]()
	_, err := mem.Create(ctx, &models.User{
		UID: "u1", Name: "Ana", UserType: models.UserTypeRestaurant, CreatedAt: created,
		RestaurantName: strPtr("Sol"), SetupCompleted: boolPtr(true), PhotoURL: strPtr("https://img/a.png"),
	})
	require.NoError(t, err)
	require.NoError(t, mem.Update(ctx, put()))
	got, err := mem.Get(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, got.RestaurantName)
	require.Nil(t, got.SetupCompleted)
	require.Nil(t, got.PhotoURL)
	require.Equal(t, created, got.CreatedAt)

	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("mongo replaces the document", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", func() *models.User { return &models.User{} })
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "mealbox.users", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "u1"}, {Key: "createdAt", Value: primitive.NewDateTimeFromTime(created)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		v := put()
		require.NoError(t, repo.Update(ctx, v))
		require.Equal(t, created, v.CreatedAt)

		var replacement bson.M
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "update" {
				continue
			}
			var cmd struct {
				Updates []struct {
					Q bson.M `bson:"q"`
					U bson.M `bson:"u"`
				} `bson:"updates"`
			}
			require.NoError(t, bson.Unmarshal(evt.Command, &cmd))
			require.Len(t, cmd.Updates, 1)
			replacement = cmd.Updates[0].U
		}
		require.NotNil(t, replacement, "an update command was sent")
		require.NotContains(t, replacement, "$set")
		require.Equal(t, "Ana", replacement["name"])
		require.NotContains(t, replacement, "restaurantName")
		require.NotContains(t, replacement, "setupCompleted")
		require.NotContains(t, replacement, "photoURL")
		require.Equal(t, primitive.NewDateTimeFromTime(created), replacement["createdAt"])
	})

	mt.Run("mongo update of a missing record", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, "name", func() *models.User { return &models.User{} })
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mealbox.users", mtest.FirstBatch))
		require.ErrorIs(t, repo.Update(ctx, put()), ErrNotFound)
	})
}
