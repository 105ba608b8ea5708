package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/useandsell/marketplace/internal/config"
	"github.com/useandsell/marketplace/internal/db"
	"github.com/useandsell/marketplace/internal/es"
	"github.com/useandsell/marketplace/internal/handlers"
	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/mykafka"
	"github.com/useandsell/marketplace/internal/service/search"
	"github.com/useandsell/marketplace/internal/storage"
	httpserver "github.com/useandsell/marketplace/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	database, err := db.Open(context.Background(), configuration)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	uploads, err := storage.NewDisk(configuration.UPLOAD_DIR)
	if err != nil {
		log.Fatalf("uploads dir: %v", err)
	}

	var store storage.Store = uploads
	var cloud *storage.Cloudinary
	if configuration.CloudinaryEnabled() {
		cloud = storage.NewCloudinary(
			configuration.CLOUDINARY_CLOUD_NAME,
			configuration.CLOUDINARY_API_KEY,
			configuration.CLOUDINARY_API_SECRET,
		)
		store = cloud
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{configuration.CORS_ORIGIN},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		ExposeHeaders:    []string{echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(logging.RequestLogger(logger))
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	e.Static("/uploads", configuration.UPLOAD_DIR)

	deps := httpserver.Deps{
		DB:        database,
		JWTSecret: jwtSecret,
		AuthHandler: &handlers.AuthHandler{DB: database, JWTSecret: jwtSecret, Producer: producer},
		UserHandler: &handlers.UserHandler{DB: database},
		ProductHandler: &handlers.ProductHandler{
			DB:       database,
			Producer: producer,
			Store:    store,
			Uploads:  uploads,
			Cloud:    cloud,
		},
		AdminHandler: &handlers.AdminProductHandler{DB: database, Producer: producer, Store: store},
		StatsHandler: &handlers.StatsHandler{DB: database},
		SearchHandler: &handlers.SearchHandler{Index: search.Index},
	}

	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init: %v", err)
		}
		deps.ProductHandler.ES = esClient
		deps.AdminHandler.ES = esClient
		deps.SearchHandler.ES = esClient
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server_started", "port", configuration.PORT)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	logger.Info("shutdown_complete")
}
