package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	turborest "github.com/ThomasDonath/turbo-rest-go"
)

var (
	serveCollection string
	serveStrategy   string
	serveSharedDB   string
	serveHardDelete bool
	serveDemoTenant string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sample REST server for one collection",
	Long:  "Start a multi-tenant CRUD REST server for a single collection, configured through CONF_* environment variables.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveCollection, "collection", "contacts", "collection to serve")
	serveCmd.Flags().StringVar(&serveStrategy, "tenancy", string(turborest.DBPerTenant), "tenancy strategy: dbPerTenant or tenantInDb")
	serveCmd.Flags().StringVar(&serveSharedDB, "db", "", "shared database name (required with tenantInDb)")
	serveCmd.Flags().BoolVar(&serveHardDelete, "hard-delete", false, "physically remove rows instead of marking them deleted")
	serveCmd.Flags().StringVar(&serveDemoTenant, "demo-tenant", "", "serve every request under this fixed tenant instead of bearer-token identities")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := turborest.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := turborest.NewLogger(turborest.LoggerConfig{
		Component:   "rest-server",
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	strategy, err := turborest.ParseTenancyStrategy(serveStrategy)
	if err != nil {
		return err
	}

	persistence, err := turborest.NewPersistence(turborest.PersistenceConfig{
		Connection:   cfg.Connection(),
		Collection:   serveCollection,
		Strategy:     strategy,
		DatabaseName: serveSharedDB,
		HardDelete:   serveHardDelete,
	}, logger)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	var identity func(http.Handler) http.Handler
	if serveDemoTenant != "" {
		identity = turborest.StaticIdentity(turborest.Identity{User: "demo", Tenant: serveDemoTenant})
	} else {
		identity = turborest.Authenticate(turborest.UnsignedTokenVerifier(), nil)
	}

	server := turborest.NewAppServer(cfg, logger, identity)
	server.RegisterCollection("/"+serveCollection, turborest.NewController(persistence, logger, serveCollection))

	return server.Run(context.Background())
}
