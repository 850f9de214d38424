package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

const mongoCloseTimeout = 5 * time.Second

// mongoRecord is the document layout: the storage key lives in _id.
type mongoRecord struct {
	ID     primitive.ObjectID `bson:"_id"`
	Record `bson:",inline"`
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (ms *MongoStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if ms == nil || ms.collection == nil {
		return Record{}, errors.New("mongo store is not initialised")
	}
	rec = prepare(rec, time.Now())
	doc := mongoRecord{ID: primitive.NewObjectID(), Record: rec}
	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		return Record{}, err
	}
	rec.ID = doc.ID.Hex()
	return rec, nil
}

func (ms *MongoStore) List(ctx context.Context) ([]Record, error) {
	if ms == nil || ms.collection == nil {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := ms.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Record
	for cursor.Next(ctx) {
		var doc mongoRecord
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec := doc.Record
		rec.ID = doc.ID.Hex()
		out = append(out, rec)
	}
	return out, cursor.Err()
}

func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
