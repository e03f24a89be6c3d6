package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"matrix-routing-client/internal/adapters/cache"
	"matrix-routing-client/internal/platform/db"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	prune := flag.Duration("prune", 0, "delete cache entries older than this age (0 keeps everything)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := initAndPrune(ctx, conn, *prune); err != nil {
		log.Fatal(err)
	}
}

func initAndPrune(ctx context.Context, conn *sql.DB, maxAge time.Duration) error {
	log.Println("Initializing matrix cache schema...")
	if err := cache.InitSchema(ctx, conn); err != nil {
		return err
	}
	log.Println("Schema ready.")

	if maxAge <= 0 {
		return nil
	}

	log.Printf("Pruning entries older than %s...", maxAge)
	n, err := cache.Prune(ctx, conn, int64(maxAge/time.Second))
	if err != nil {
		return err
	}
	log.Printf("Pruned %d entries.", n)

	return nil
}
