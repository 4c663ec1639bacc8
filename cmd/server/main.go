package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/sweetshop/api/internal/config"
	"github.com/sweetshop/api/internal/database"
	"github.com/sweetshop/api/internal/handler"
	"github.com/sweetshop/api/internal/middleware"
	"github.com/sweetshop/api/internal/queue"
	"github.com/sweetshop/api/internal/repository"
	"github.com/sweetshop/api/internal/router"
	"github.com/sweetshop/api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load() // Load environment config

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("mongodb: %v", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("mongodb indexes: %v", err)
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable; caching and rate limiting degrade gracefully

	users := repository.NewUserRepo(db)
	admins := repository.NewAdminRepo(db)
	sweets := repository.NewSweetRepo(db)

	var events handler.EventPublisher
	if cfg.EventsEnabled {
		events = service.NewCatalogPublisher()
		go func() {
			if err := queue.StartCatalogConsumer(); err != nil {
				log.Printf("catalog consumer stopped: %v", err)
			}
		}()
	}

	authHandler := &handler.AuthHandler{Cfg: cfg, Users: users}
	adminHandler := &handler.AdminHandler{Cfg: cfg, Admins: admins}
	sweetHandler := handler.NewSweetHandler(sweets, events)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("10M"))
	if rdb != nil {
		e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
	}

	router.Register(e, &cfg, authHandler, adminHandler, sweetHandler, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
