package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Repository on a MongoDB collection. Records are stored
// under string "_id" values; searchField is the bson name of the field that
// backs Entity.SearchKey.
type MongoRepo[T Entity] struct {
	col         *mongo.Collection
	searchField string
	newT        func() T
}

func NewMongoRepo[T Entity](col *mongo.Collection, searchField string, newT func() T) *MongoRepo[T] {
	return &MongoRepo[T]{col: col, searchField: searchField, newT: newT}
}

// EnsureIndexes creates the index prefix searches run on.
func (m *MongoRepo[T]) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: m.searchField, Value: 1}}}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create %s index on %s: %w", m.searchField, m.col.Name(), err)
	}
	return nil
}

func (m *MongoRepo[T]) Create(ctx context.Context, v T) (string, error) {
	if v.GetID() == "" {
		v.SetID(primitive.NewObjectID().Hex())
	}
	stampCreate(v, time.Now().UTC())
	if _, err := m.col.InsertOne(ctx, v); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrAlreadyExists
		}
		return "", err
	}
	return v.GetID(), nil
}

func (m *MongoRepo[T]) Get(ctx context.Context, id string) (T, error) {
	v := m.newT()
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(v); err != nil {
		var zero T
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return v, nil
}

func (m *MongoRepo[T]) List(ctx context.Context) ([]T, error) {
	return m.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (m *MongoRepo[T]) Page(ctx context.Context, req PageRequest) (*Page[T], error) {
	limit := req.limit()
	filter := bson.M{}
	if req.After != "" {
		filter["_id"] = bson.M{"$gt": req.After}
	}
	// fetch one extra record to learn whether another page follows
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit + 1))
	items, err := m.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.Next = items[limit-1].GetID()
	}
	return page, nil
}

func (m *MongoRepo[T]) Search(ctx context.Context, prefix string, limit int) ([]T, error) {
	limit = PageRequest{Limit: limit}.limit()
	filter := bson.M{m.searchField: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return m.find(ctx, filter, opts)
}

func (m *MongoRepo[T]) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]T, error) {
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []T{}
	for cur.Next(ctx) {
		v := m.newT()
		if err := cur.Decode(v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

// Update replaces the whole record, keeping only _id and createdAt from the
// stored one. Fields left empty in v are removed, as in MemoryRepo.
func (m *MongoRepo[T]) Update(ctx context.Context, v T) error {
	var stored struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	opts := options.FindOne().SetProjection(bson.M{"createdAt": 1})
	if err := m.col.FindOne(ctx, bson.M{"_id": v.GetID()}, opts).Decode(&stored); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	stampUpdate(v, stored.CreatedAt, time.Now().UTC())
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": v.GetID()}, v)
	if err != nil {
		return err
	}
	// deleted between the lookup and the replace
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo[T]) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
