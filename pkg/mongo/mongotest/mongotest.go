// Package mongotest provides a throwaway database for integration tests.
package mongotest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnvURI names the variable holding the test server URL.
const EnvURI = "COURSEKIT_TEST_MONGO_URI"

// Database connects to the server named by EnvURI and returns a uniquely
// named database that is dropped when the test ends. The test is skipped if
// the variable is unset or in short mode.
func Database(tb testing.TB) *mongo.Database {
	tb.Helper()

	uri := os.Getenv(EnvURI)
	if uri == "" {
		tb.Skip(EnvURI + " environment variable not set. Example: " +
			EnvURI + "=mongodb://localhost:27017 go test ./...")
	}
	if testing.Short() {
		tb.Skip("Skipping integration test in short mode")
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		tb.Fatalf("connect to %s: %v", uri, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		tb.Fatalf("ping %s: %v", uri, err)
	}

	db := client.Database(fmt.Sprintf("coursekit_test_%s", bson.NewObjectID().Hex()))
	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
