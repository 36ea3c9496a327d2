package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"zenda-system/config"
	"zenda-system/internal/checkout"
	"zenda-system/internal/database"
	"zenda-system/internal/menu"
	"zenda-system/internal/rates"
	"zenda-system/internal/sales"
	"zenda-system/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.LoadConfig()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	taxRate, err := decimal.NewFromString(cfg.POS.TaxRate)
	if err != nil {
		log.Fatalf("Invalid POS_TAX_RATE %q: %v", cfg.POS.TaxRate, err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	deps := Dependencies{
		DB:        db,
		Redis:     redisClient,
		Manager:   checkout.NewManager(taxRate, cfg.POS.DefaultCurrency),
		Committer: sales.NewCommitter(db, sales.NewNumberer(redisClient)),
		Rates:     rates.NewService(redisClient, cfg.Rates.UpstreamURL, cfg.Rates.CacheTTL),
		Importer:  menu.NewImporter(db),
		TokenTTL:  cfg.Auth.TokenTTL,
		RateLimit: cfg.POS.RateLimit,
	}

	r := NewRouter(deps)

	log.Printf(" 💰 POS server listening on %s", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
