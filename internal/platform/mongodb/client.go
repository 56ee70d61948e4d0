// Package mongodb bootstraps the MongoDB connection used by the visitor store.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client owns the driver client and the database handle.
type Client struct {
	client *mongo.Client
	DB     *mongo.Database
}

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	return &Client{client: client, DB: client.Database(database)}, nil
}

// Health pings the primary.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
