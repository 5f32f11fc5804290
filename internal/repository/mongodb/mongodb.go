// Package mongodb stores records as documents in a MongoDB collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"tigerscraper/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const serverSelectionTimeout = 5 * time.Second

type Config struct {
	ConnectionString string `json:"connection_string"`
	Database         string `json:"database"`
	Collection       string `json:"collection"`
}

type Repository struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
	name       string
}

// Open creates a client, it does not connect until the first operation.
func Open(ctx context.Context, config Config) (Repository, error) {
	if config.ConnectionString == "" || config.Database == "" || config.Collection == "" {
		return Repository{}, fmt.Errorf("open mongodb: connection string, database and collection are required")
	}
	client, err := mongo.Connect(
		ctx,
		options.Client().
			ApplyURI(config.ConnectionString).
			SetServerSelectionTimeout(serverSelectionTimeout),
	)
	if err != nil {
		return Repository{}, fmt.Errorf("open mongodb: %w", err)
	}
	database := client.Database(config.Database)
	return Repository{
		client:     client,
		database:   database,
		collection: database.Collection(config.Collection),
		name:       config.Collection,
	}, nil
}

func (r Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func indexName(field string, order int) string {
	if order < 0 {
		return field + "_desc"
	}
	return field + "_asc"
}

// EnsureSchema creates the collection if it does not exist and indexes the
// derived fields in both orders. Creating an index that already exists is a
// no-op.
func (r Repository) EnsureSchema(ctx context.Context) error {
	names, err := r.database.ListCollectionNames(ctx, bson.D{{Key: "name", Value: r.name}})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(names) == 0 {
		err = r.database.CreateCollection(ctx, r.name)
		var cmdErr mongo.CommandError
		// NamespaceExists, another process created it in between
		if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Code == 48) {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	var models []mongo.IndexModel
	for _, field := range model.IndexedFields {
		for _, order := range []int{1, -1} {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: field, Value: order}},
				Options: options.Index().SetName(indexName(field, order)),
			})
		}
	}
	_, err = r.collection.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (r Repository) Save(ctx context.Context, record model.Record) (string, error) {
	res, err := r.collection.InsertOne(ctx, record.Document())
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		return id.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

type storedDocument struct {
	ID             primitive.ObjectID `bson:"_id"`
	model.Document `bson:",inline"`
}

// Recent returns up to n of the most recently inserted documents, newest first.
func (r Repository) Recent(ctx context.Context, n int) ([]model.Document, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: -1}}).
			SetLimit(int64(n)),
	)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	var out []model.Document
	for cursor.Next(ctx) {
		var stored storedDocument
		err = cursor.Decode(&stored)
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		stored.Document.ID = stored.ID.Hex()
		out = append(out, stored.Document)
	}
	return out, cursor.Err()
}

func (r Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
