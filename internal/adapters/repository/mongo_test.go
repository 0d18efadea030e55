package repository

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestMongoStore_Contract needs a replica set, since CreateAccount runs in a
// transaction, for example
// SCOREKEEP_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0.
func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("SCOREKEEP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SCOREKEEP_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := ConnectMongo(ctx, uri, "scorekeep_test_"+uniqueSuffix())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if err := store.db.Drop(context.Background()); err != nil {
			t.Errorf("drop database: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	runStoreContract(t, store)
}
