package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/v2/bson"

	turborest "github.com/ThomasDonath/turbo-rest-go"
)

// Demonstrates direct library use: the full insert/update/delete cycle of one
// record including a deliberately stale update that trips the optimistic lock.
func main() {
	ctx := context.Background()

	hostPort := os.Getenv("CONF_DB_SERVERNAME_PORT")
	if hostPort == "" {
		hostPort = "localhost:27017"
	}

	logger, err := turborest.NewLogger(turborest.LoggerConfig{Component: "contacts-example", Level: "debug", Development: true})
	if err != nil {
		log.Fatal(err)
	}

	persistence, err := turborest.NewPersistence(turborest.PersistenceConfig{
		Connection: turborest.ConnectionConfig{HostPort: hostPort},
		Collection: "contacts",
		Strategy:   turborest.DBPerTenant,
	}, logger)
	if err != nil {
		log.Fatal(err)
	}

	const tenant = "demo"

	// 1. Insert: the engine assigns id, tenant and rowVersion 1.
	created, err := persistence.Insert(ctx, turborest.PayloadRecord{
		Data: bson.M{"name": "Acme", "city": "Berlin"},
	}, tenant, "example")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("inserted %s (rowVersion %d)\n", created.ID, created.AuditRecord.RowVersion)

	// 2. Update with the current version succeeds and bumps the version.
	created.Data["city"] = "Hamburg"
	updated, err := persistence.Update(ctx, created, tenant, "example")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("updated to rowVersion %d\n", updated.AuditRecord.RowVersion)

	// 3. Updating with the stale version fails the optimistic-lock check.
	_, err = persistence.Update(ctx, created, tenant, "example")
	if restErr, ok := turborest.AsRestError(err); ok {
		fmt.Printf("stale update rejected: %s (HTTP %d)\n", restErr.Kind, restErr.Status())
	}

	// 4. Soft-delete with the current version.
	if err := persistence.Delete(ctx, updated.ID, updated.AuditRecord.RowVersion, "example", tenant, false); err != nil {
		log.Fatal(err)
	}

	// The record stays readable by primary key, marked deleted.
	deleted, err := persistence.Get(ctx, updated.ID, tenant)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("deleted=%v changedBy=%s\n", deleted.Deleted, deleted.AuditRecord.ChangedBy)
}
