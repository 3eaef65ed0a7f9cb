package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/cart"
	"github.com/ovenfresh/bakeshop/internal/config"
	"github.com/ovenfresh/bakeshop/internal/es"
	"github.com/ovenfresh/bakeshop/internal/events"
	"github.com/ovenfresh/bakeshop/internal/handlers"
	"github.com/ovenfresh/bakeshop/internal/logging"
	"github.com/ovenfresh/bakeshop/internal/media"
	"github.com/ovenfresh/bakeshop/internal/service/token"
	httpserver "github.com/ovenfresh/bakeshop/internal/transport/http"
)

func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := events.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	var mediaStore *media.Store
	if configuration.GCS_BUCKET != "" {
		mediaStore, err = media.NewStore(context.Background(), configuration.GCS_BUCKET)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		logger.Warn("GCS_BUCKET not set, image uploads disabled")
	}

	authService := auth.NewService(db, jwtSecret, refreshSecret, prod, logger)
	cartRepo := cart.NewRepo(db)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		AuthHandler:     &handlers.AuthHandler{Auth: authService},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod, ES: esClient, Index: "product", Media: mediaStore, JWTSecret: jwtSecret},
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		CartHandler:     &handlers.CartHandler{Repo: cartRepo, Producer: prod, JWTSecret: jwtSecret},
		OrderHandler:    &handlers.OrderHandler{DB: db, Producer: prod, Media: mediaStore, JWTSecret: jwtSecret},
		ReviewHandler:   &handlers.ReviewHandler{DB: db, JWTSecret: jwtSecret},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "product"},
		ServiceHandler:  &token.TokenService{Auth: authService, JWTSecret: jwtSecret},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if mediaStore != nil {
		if err := mediaStore.Close(); err != nil {
			log.Printf("gcs close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
