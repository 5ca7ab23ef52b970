package config

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var mongoClient *mongo.Client

// InitMongo connects to the document store and returns the configured database.
func InitMongo() *mongo.Database {
	cfg := Get()
	if mongoClient == nil {
		opts := options.Client().
			ApplyURI(cfg.MongoURI).
			SetMaxPoolSize(20).
			SetConnectTimeout(5 * time.Second)

		client, err := mongo.Connect(opts)
		if err != nil {
			log.Fatalf("failed to connect mongo: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			log.Fatalf("mongo ping failed: %v", err)
		}
		mongoClient = client
	}
	return mongoClient.Database(cfg.MongoDatabase)
}
