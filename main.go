package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"optimaster/m/internal/api"
	"optimaster/m/internal/config"
	"optimaster/m/internal/database"
	"optimaster/m/internal/logger"
	"optimaster/m/internal/migrations"
	"optimaster/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zlog, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal("unable to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		zlog.Fatal("unable to migrate database", zap.Error(err))
	}
	seed.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPassword, zlog)

	handler := api.New(db, cfg.Secret, zlog)

	zlog.Info("OptiMaster API listening", zap.String("port", cfg.HTTPPort))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
