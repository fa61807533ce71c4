package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	go_loyalty "github.com/lavivara/go-loyalty"
	"github.com/lavivara/go-loyalty/internal/httpapi"
	"github.com/lavivara/go-loyalty/internal/shopify"
	"github.com/lavivara/go-loyalty/service"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	db := openDatabase()

	var issuer service.DiscountIssuer
	shopDomain := os.Getenv("SHOPIFY_SHOP_DOMAIN")
	accessToken := os.Getenv("SHOPIFY_ACCESS_TOKEN")
	if shopDomain != "" && accessToken != "" {
		issuer = shopify.NewDiscountClient(shopDomain, accessToken)
	} else {
		log.Println("SHOPIFY_SHOP_DOMAIN/SHOPIFY_ACCESS_TOKEN not set, discount codes will not be created on Shopify")
	}

	loyalty := go_loyalty.NewLoyaltyServiceWithIssuer(db, issuer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := loyalty.Worker.StartScheduler(ctx); err != nil {
			log.Printf("scheduler stopped: %v", err)
		}
	}()

	app := fiber.New()

	app.Use(cors.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("request_id", uuid.NewString())
		return c.Next()
	})

	handler := httpapi.NewHandler(loyalty)
	httpapi.SetupRoutes(app, handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.Printf("server shutdown failed: %v", err)
		}
	}()

	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// openDatabase connects to Postgres when DATABASE_URL is set, otherwise
// falls back to a local sqlite file.
func openDatabase() *gorm.DB {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		return db
	}

	path := os.Getenv("SQLITE_PATH")
	if path == "" {
		path = "loyalty.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to sqlite: %v", err)
	}
	return db
}
