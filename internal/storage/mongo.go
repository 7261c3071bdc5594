package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase = "interview_buddy"
	interviewsCollection = "interviews"
)

// MongoStore keeps one document per interview in the interviews collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	if database == "" {
		database = defaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(database).Collection(interviewsCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create status index: %w", err)
	}

	return &MongoStore{client: client, collection: collection}, nil
}

// Save replaces the document when the stored version is older. When it is not, the
// filter misses and the upsert collides on _id, which is reported as ErrStaleWrite.
func (s *MongoStore) Save(ctx context.Context, rec *InterviewRecord) error {
	filter := bson.M{"_id": rec.ID, "version": bson.M{"$lt": rec.Version}}
	_, err := s.collection.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrStaleWrite
	}
	if err != nil {
		return fmt.Errorf("replace interview %s: %w", rec.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*InterviewRecord, error) {
	var rec InterviewRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find interview %s: %w", id, err)
	}
	return &rec, nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"updated_at": -1})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer cursor.Close(ctx)

	ids := []string{}
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode interview id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}
	return ids, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
