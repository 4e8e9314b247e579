package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database wraps the shared mongo client. It is constructed once at
// startup and handed to the stores explicitly; nothing else in the
// process touches the connection.
type Database struct {
	Client *mongo.Client
	name   string
}

// ConnectDB dials MongoDB using MONGODB_URI and verifies the connection
// with a ping before returning.
func ConnectDB(ctx context.Context) (*Database, error) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	databaseName := os.Getenv("DATABASE_NAME")
	if databaseName == "" {
		databaseName = "trading-journal"
	}

	return &Database{Client: client, name: databaseName}, nil
}

// Collection returns a handle to a collection in the configured database.
func (db *Database) Collection(name string) *mongo.Collection {
	return db.Client.Database(db.name).Collection(name)
}

// Ping reports whether the store is reachable. Used by the health endpoint.
func (db *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.Client.Ping(ctx, nil)
}

// Disconnect closes the MongoDB connection.
func (db *Database) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
