package main

import (
	"context"
	_ "embed"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

//go:embed catalog.json
var defaultCatalog []byte

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	file := flag.String("file", "", "JSON catalog to load instead of the bundled one")
	reset := flag.Bool("reset", false, "replace existing products")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "reset": *reset})

	data := defaultCatalog
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			logg.Error(ctx, "failed to read catalog file", err)
			os.Exit(1)
		}
	}
	catalog, err := products.ParseSeedCatalog(data)
	if err != nil {
		logg.Error(ctx, "invalid catalog", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	var inserted int
	err = dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var seedErr error
		inserted, seedErr = products.Seed(ctx, products.NewRepository(tx), catalog, *reset)
		return seedErr
	})
	if err != nil {
		logg.Error(ctx, "seeding failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	if inserted == 0 {
		logg.Info(ctx, "catalog already populated; pass -reset to replace it")
		return
	}
	logg.Info(logg.WithField(ctx, "inserted", inserted), "catalog seeded")
}
