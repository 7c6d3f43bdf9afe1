package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and response
	// cache become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("[main] redis unavailable, rate limiting and caching disabled")
	}

	eventRepo := repository.NewEventRepo(db)
	resRepo := repository.NewReservationRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	publisher := queue.NewPublisher()
	events := service.NewEventService(eventRepo)
	reservations := service.NewReservationService(eventRepo, resRepo, publisher)

	// Background reconciler: repairs booked counters that drifted from
	// the sum of active reservations after partial failures.
	if cfg.ReconcileInterval > 0 {
		rec := service.NewReconciler(eventRepo, publisher, cfg.ReconcileInterval)
		go rec.Run(context.Background())
	}

	// Queue consumers append confirmation and drift events to audit
	// logs. They reconnect on their own; startup errors are not fatal.
	go func() {
		if err := queue.StartReservationLogConsumer(); err != nil {
			log.Printf("[main] reservation consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartDriftLogConsumer(); err != nil {
			log.Printf("[main] drift consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	organizerHandler := handler.NewOrganizerHandler(events, reservations, eventRepo, resRepo)
	participantHandler := handler.NewParticipantHandler(reservations)
	publicHandler := handler.NewPublicHandler(events)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, publicHandler, cache)
	router.RegisterOrganizer(e, organizerHandler, cfg.JWTSecret)
	router.RegisterParticipant(e, participantHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
