package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongoDB establishes a connection to MongoDB and pings it.
func ConnectMongoDB(ctx context.Context, uri string, log *zap.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to MongoDB")
	return client, nil
}

// GetUserCollection returns the users collection of dbName.
func GetUserCollection(client *mongo.Client, dbName string) *mongo.Collection {
	return client.Database(dbName).Collection("users")
}

// EnsureUserIndexes creates the unique email index.
func EnsureUserIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}
