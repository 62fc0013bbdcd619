package turborest

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConnectionConfig describes how to reach the document store. Credentials are
// optional; when a username is set the connection authenticates against the
// admin database, matching the store's schema-owner setup.
type ConnectionConfig struct {
	HostPort string // host:port, e.g. "localhost:27017"
	Username string
	Password string
}

// connectString builds the MongoDB URI for this configuration. The target
// database is appended by the caller from the tenancy resolver.
func (c ConnectionConfig) connectString(dbName string) string {
	if c.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s/%s?authSource=admin", c.Username, c.Password, c.HostPort, dbName)
	}
	return fmt.Sprintf("mongodb://%s/%s", c.HostPort, dbName)
}

// connect opens a client for one operation. Every caller must release it via
// disconnect on all exit paths; the engine never keeps a client across calls.
func (c ConnectionConfig) connect(dbName string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(c.connectString(dbName)))
	if err != nil {
		return nil, fmt.Errorf("turborest: failed to connect: %w", err)
	}
	return client, nil
}

// disconnect releases an operation-scoped client. Errors during release are
// deliberately dropped: the operation result must not change because cleanup
// hiccuped.
func disconnect(ctx context.Context, client *mongo.Client) {
	if client != nil {
		_ = client.Disconnect(ctx)
	}
}
