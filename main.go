package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"coaching-api/api"
	"coaching-api/domain"
	"coaching-api/storage"
)

func main() {
	cfg := loadConfig()
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.StorageConnStr, cfg.Tables, cfg.ActivityQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	rc := redis.NewClient(storage.RedisOptions(cfg.RedisConnStr))
	defer rc.Close()
	cache := storage.NewCache(store, rc, cfg.CurriculumTTL)
	rooms := storage.NewRooms(rc)

	blobs, err := storage.NewBlobs(ctx, cfg.Blobs)
	if err != nil {
		log.Fatalf("blobs: %v", err)
	}

	var jwks *keyfunc.JWKS
	if len(cfg.Auth.HS256Secret) == 0 {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
		jwks, err = keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: cfg.Auth.KeyCacheTTL})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		defer jwks.EndBackground()
	}
	auth := api.NewAuth(jwks, cfg.Auth)

	logger := log.New()
	logger.SetLevel(log.GetLevel())

	var sink api.ActivitySink
	if cfg.ActivityQueue != "" {
		sink = store
	} else {
		logger.Warn("ACTIVITY_QUEUE not set, activity feed disabled")
	}
	publisher := api.NewActivityPublisher(sink, api.NewRedisDeduper(rc, cfg.DeduperTTL), cfg.Publisher, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(echoprometheus.NewMiddleware("coaching_api"))
	e.Use(api.GzipRequestMiddleware(api.MaxDecompressedBody))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, api.Deps{
		Curriculum:    cache,
		Completions:   store,
		Organizations: store,
		Teams:         store,
		Boards:        domain.NewBoardService(store, rooms),
		Rooms:         rooms,
		Blobs:         blobs,
		Auth:          auth,
		Activity:      publisher,
		HealthChecks: map[string]api.HealthCheck{
			"redis": func(ctx context.Context) error { return rc.Ping(ctx).Err() },
		},
		SignInURL:    cfg.SignInURL,
		OrgSelectURL: cfg.OrgSelectURL,
	}, logger)

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
	publisher.Close()
}
