package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mindpath-ai/mindpath/config"
	"github.com/mindpath-ai/mindpath/internal/cache"
	"github.com/mindpath-ai/mindpath/internal/profile"
	"github.com/mindpath-ai/mindpath/internal/store"
	"github.com/mindpath-ai/mindpath/provider"
)

func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := cfg.Profile.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	dsn, err := cfg.Database.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		baseLogger.Printf("migrate: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	// snapshot cache is optional: a missing or unreachable redis only costs
	// one extra profile read per chat request
	var snapCache *cache.Snapshot
	if cfg.Redis.Host != "" {
		client, err := cache.Conn(ctx, cfg.Redis)
		if err != nil {
			baseLogger.Printf("redis unavailable, snapshot cache disabled: %v", err)
		} else {
			snapCache = cache.NewSnapshot(client, cfg.Redis.TTL, log.New(log.Writer(), "[CACHE] ", log.LstdFlags))
		}
	}

	pipeLogger := log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	pipe := &profile.Pipeline{
		Store:      st,
		Normalizer: profile.NewNormalizer(cfg.Profile.MaxUpdatesPerReply, cfg.Profile.DefaultContentLayer),
		Writer:     &profile.Writer{Store: st, Ladder: profile.NewLadder(cfg.Profile.LevelLadder), Logger: pipeLogger},
		Cache:      snapCache,
		Logger:     pipeLogger,
	}

	secretStr, err := cfg.JWTSecret()
	if err != nil {
		return err
	}
	secret := []byte(secretStr)

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret, Debug: cfg.General.Debug}
	auth.Register(api.Group("/auth"))

	ch := &ChatHandler{
		Store:    st,
		LLM:      llm,
		Pipeline: pipe,
		Cache:    snapCache,
		Logger:   log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
	ch.Register(api.Group("/chat"), secret)

	ph := &ProfileHandler{Store: st}
	ph.Register(api.Group("/profile"), secret)
	ph.RegisterConversations(api.Group("/conversations"), secret)

	return e.Start(cfg.Server.Address)
}
