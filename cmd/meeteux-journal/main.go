package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/config"
	"github.com/fhstp/meeteux-odwww/internal/database"
	"github.com/fhstp/meeteux-odwww/internal/journal"
	"github.com/fhstp/meeteux-odwww/internal/logger"
	rediscommon "github.com/fhstp/meeteux-odwww/internal/redis"

	"go.uber.org/zap"
)

func main() {
	// Parse command line arguments
	var userID = flag.Int("user", 0, "Export the visit journal of this user ID to xlsx")
	var limit = flag.Int("limit", 500, "Maximum number of visits to export")
	var out = flag.String("out", "", "Output file (default: visits-<user>.xlsx)")
	var actions = flag.Int64("actions", 0, "Print the last N entries of the action log stream")
	flag.Parse()

	if *userID == 0 && *actions == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "meeteux-journal")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *userID != 0 {
		path := *out
		if path == "" {
			path = fmt.Sprintf("visits-%d.xlsx", *userID)
		}
		if err := exportVisits(ctx, cfg, zapLogger, *userID, *limit, path); err != nil {
			zapLogger.Fatal("Failed to export visits", zap.Int("user_id", *userID), zap.Error(err))
		}
	}

	if *actions > 0 {
		if err := printActions(ctx, cfg, *actions); err != nil {
			zapLogger.Fatal("Failed to read action log", zap.String("stream", cfg.Guide.ActionStream), zap.Error(err))
		}
	}
}

func exportVisits(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger, userID, limit int, path string) error {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	n, err := journal.ExportUser(ctx, journal.NewRepository(db, zapLogger), userID, limit, f)
	if err != nil {
		return err
	}
	zapLogger.Info("Visits exported",
		zap.Int("user_id", userID),
		zap.Int("rows", n),
		zap.String("file", path),
	)
	return nil
}

func printActions(ctx context.Context, cfg *config.Config, count int64) error {
	if cfg.Guide.ActionStream == "" {
		return fmt.Errorf("action stream not configured")
	}

	client, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer rediscommon.Close(client)

	records, err := rediscommon.ReadActions(ctx, client, cfg.Guide.ActionStream, count)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
