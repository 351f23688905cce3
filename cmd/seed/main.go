// Package main implements a standalone seed script that populates the
// storefront catalog with sample products. It connects directly to the
// database with the same config, migrations and repository layer the server
// uses, and is a no-op when the catalog already has products.
package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/logger"
)

var sampleProducts = []struct {
	name        string
	description string
	category    string
	price       int64
	quantity    int
	shipping    bool
}{
	{"Mechanical Keyboard", "Hot-swappable 75% board with PBT keycaps", "peripherals", 12900, 40, true},
	{"Wireless Mouse", "Lightweight 2.4GHz mouse, 80h battery", "peripherals", 4900, 120, true},
	{"USB-C Hub", "7-in-1 hub with HDMI and card reader", "accessories", 3500, 75, true},
	{"Laptop Stand", "Adjustable aluminium stand", "accessories", 2900, 60, true},
	{"27\" Monitor", "QHD IPS panel, 144Hz", "displays", 27900, 25, false},
	{"Webcam", "1080p webcam with privacy shutter", "peripherals", 5900, 90, true},
	{"Desk Mat", "90x40cm stitched-edge desk mat", "accessories", 1900, 200, true},
	{"Noise-Cancelling Headphones", "Over-ear ANC, 30h battery", "audio", 19900, 35, true},
	{"Portable SSD", "1TB USB-C NVMe drive", "storage", 10900, 50, true},
	{"Monitor Light Bar", "Asymmetric screen bar, no glare", "displays", 4500, 45, true},
}

func main() {
	log := logger.New("storefront-seed", "info")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 2,
		MinConns: 1,
	}, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo := postgres.NewProductRepository(pool)

	existing, err := repo.List(ctx, repository.ProductListFilter{SortBy: domain.ProductSortCreatedAt, Limit: 1})
	if err != nil {
		log.Error("failed to check catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(existing) > 0 {
		log.Info("catalog already seeded, nothing to do")
		return
	}

	for _, sp := range sampleProducts {
		now := time.Now().UTC()
		product := &domain.Product{
			ID:          uuid.New().String(),
			Name:        sp.name,
			Description: sp.description,
			Category:    sp.category,
			Price:       sp.price,
			Quantity:    sp.quantity,
			Sold:        rand.Intn(sp.quantity),
			Shipping:    sp.shipping,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, product); err != nil {
			log.Error("failed to seed product",
				slog.String("name", sp.name),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		log.Info("seeded product", slog.String("name", sp.name), slog.String("id", product.ID))
	}

	log.Info("catalog seeded", slog.Int("products", len(sampleProducts)))
}
