package turborest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// testHostPort returns the MongoDB host:port for integration tests, from
// MONGODB_URI or the default local instance.
func testHostPort() string {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		return "localhost:27017"
	}
	return strings.TrimPrefix(strings.TrimSuffix(uri, "/"), "mongodb://")
}

// setupTestPersistence connects to a throwaway shared database (TenantInDB
// strategy, so every test run gets one unique database to drop afterwards)
// and skips the test when no MongoDB is reachable.
func setupTestPersistence(t *testing.T) (context.Context, *Persistence, func()) {
	t.Helper()

	hostPort := testHostPort()
	ctx := context.Background()

	client, err := mongo.Connect(options.Client().ApplyURI("mongodb://" + hostPort))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB not available: %v", err)
	}

	dbName := fmt.Sprintf("turborest_test_%d", time.Now().UnixNano())

	p, err := NewPersistence(PersistenceConfig{
		Connection:   ConnectionConfig{HostPort: hostPort},
		Collection:   "test_records",
		Strategy:     TenantInDB,
		DatabaseName: dbName,
	}, zap.NewNop())
	if err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("unexpected error: %v", err)
	}

	cleanup := func() {
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	}

	return ctx, p, cleanup
}

// rawInsert writes a document directly, bypassing the engine. Used to build
// synthetic storage states (e.g. duplicate rows) the engine itself forbids.
func rawInsert(t *testing.T, hostPort, dbName string, doc PayloadRecord) {
	t.Helper()

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI("mongodb://" + hostPort))
	if err != nil {
		t.Fatalf("raw connect failed: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	if _, err := client.Database(dbName).Collection("test_records").InsertOne(ctx, doc); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}
}

func testRecord(data bson.M) PayloadRecord {
	return PayloadRecord{Data: data}
}
