package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entry is the document shape of one stored key.
type entry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore implements Store on a Mongo collection, one document per key.
type MongoStore struct {
	col    *mongo.Collection
	prefix string
}

func NewMongoStore(col *mongo.Collection, prefix string) *MongoStore {
	return &MongoStore{col: col, prefix: prefix}
}

func (m *MongoStore) Set(ctx context.Context, key, value string) error {
	k := m.prefix + key
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": k},
		entry{Key: k, Value: value, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true))
	return err
}

func (m *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	return decodeEntry(m.col.FindOne(ctx, bson.M{"_id": m.prefix + key}))
}

func (m *MongoStore) Take(ctx context.Context, key string) (string, bool, error) {
	return decodeEntry(m.col.FindOneAndDelete(ctx, bson.M{"_id": m.prefix + key}))
}

func (m *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": m.prefix + key})
	return err
}

func decodeEntry(res *mongo.SingleResult) (string, bool, error) {
	var e entry
	if err := res.Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Value, true, nil
}
