package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"order-tracker/internal/audit"
	"order-tracker/internal/config"
	"order-tracker/internal/database"
	"order-tracker/internal/order"
	"order-tracker/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func newApp(cfg *config.Config, repo *repository.Repository, auditSvc *audit.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: order.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	// CORS origins come in as a comma separated list
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), cfg.RequestTimeout)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Database unreachable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	order.NewHandler(repo, auditSvc, cfg.RequestTimeout).Register(api)
	api.Get("/audit-logs", audit.ListAuditLogsHandler(auditSvc))

	return app
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to create database connection: %v", err)
	}

	repo := repository.NewRepository(db)
	if cfg.SeedDemoData {
		if err := repo.Seed(context.Background()); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	app := newApp(cfg, repo, audit.NewService(repo.DB()))

	go func() {
		log.Println("Server starting on", cfg.Addr())
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Shutting down HTTP server: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Println("HTTP server gracefully stopped")
}
