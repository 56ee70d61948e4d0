//go:build integration

package containers

import (
	"context"
	"testing"

	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoContainer wraps a testcontainers MongoDB instance.
type MongoContainer struct {
	Container *tcmongo.MongoDBContainer
	URI       string
	Client    *mongo.Client
}

// NewMongoContainer starts a new MongoDB container.
func NewMongoContainer(t *testing.T) *MongoContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get mongo connection string: %v", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	return &MongoContainer{
		Container: container,
		URI:       uri,
		Client:    client,
	}
}

// Database returns a handle to the named database.
func (m *MongoContainer) Database(name string) *mongo.Database {
	return m.Client.Database(name)
}

// Terminate disconnects and stops the container.
func (m *MongoContainer) Terminate(ctx context.Context) {
	_ = m.Client.Disconnect(ctx)
	_ = m.Container.Terminate(ctx)
}
