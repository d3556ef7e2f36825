// migrate applies the versioned SQL migrations under an advisory lock.
//
// Usage: migrate [--dir migrations] [--database-url URL]
package main

import (
	"context"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"water-delivery/internal/db"
	"water-delivery/internal/logger"
	"water-delivery/migrations"
)

func main() {
	_ = godotenv.Load()

	dir := pflag.String("dir", "", "read migrations from this directory instead of the embedded set")
	url := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	level := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	zlog, err := logger.New(*level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	var source fs.FS = migrations.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	found, err := db.DiscoverMigrations(source)
	if err != nil {
		zlog.Fatal("discover", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, *url, 2)
	if err != nil {
		zlog.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, found, zlog); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}
	zlog.Info("all migrations processed", zap.Int("count", len(found)))
}
