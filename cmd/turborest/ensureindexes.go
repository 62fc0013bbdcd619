package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	turborest "github.com/ThomasDonath/turbo-rest-go"
)

var (
	ensureCollection string
	ensureStrategy   string
	ensureSharedDB   string
	ensureTenants    []string
)

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Provision collection indexes for the given tenants",
	Long:  "Create the missing indexes for a collection up front, instead of relying on the lazy first-insert provisioning.",
	RunE:  runEnsureIndexes,
}

func init() {
	ensureIndexesCmd.Flags().StringVar(&ensureCollection, "collection", "", "collection to provision")
	ensureIndexesCmd.Flags().StringVar(&ensureStrategy, "tenancy", string(turborest.DBPerTenant), "tenancy strategy: dbPerTenant or tenantInDb")
	ensureIndexesCmd.Flags().StringVar(&ensureSharedDB, "db", "", "shared database name (required with tenantInDb)")
	ensureIndexesCmd.Flags().StringSliceVar(&ensureTenants, "tenant", nil, "tenant id (repeatable)")
	_ = ensureIndexesCmd.MarkFlagRequired("collection")
	_ = ensureIndexesCmd.MarkFlagRequired("tenant")
}

func runEnsureIndexes(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg, err := turborest.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := turborest.NewLogger(turborest.LoggerConfig{
		Component: "ensure-indexes",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	strategy, err := turborest.ParseTenancyStrategy(ensureStrategy)
	if err != nil {
		return err
	}

	persistence, err := turborest.NewPersistence(turborest.PersistenceConfig{
		Connection:   cfg.Connection(),
		Collection:   ensureCollection,
		Strategy:     strategy,
		DatabaseName: ensureSharedDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	for _, tenant := range ensureTenants {
		if err := persistence.EnsureIndexes(ctx, tenant); err != nil {
			return fmt.Errorf("ensure indexes for tenant %q: %w", tenant, err)
		}
		fmt.Printf("indexes ensured for tenant %s\n", tenant)
	}

	return nil
}
