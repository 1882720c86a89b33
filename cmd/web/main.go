// Web front end for the discourse engine using Gin framework.
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crystal/internal/cli"
	"crystal/internal/config"
	"crystal/internal/logging"
	"crystal/internal/server"
	"crystal/internal/session"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static/*
var static embed.FS

func main() {
	addr := flag.String("addr", ":8181", "Listen address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := serve(*addr, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func serve(addr string, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := cli.NewEngine(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return err
	}

	// Use release mode in production
	gin.SetMode(gin.ReleaseMode)

	srv := server.New(engine, session.NewManager(), nil, logger.Named("server"))
	r := srv.Router()
	r.SetHTMLTemplate(tmpl)

	// Static files - use fs.Sub to strip the "static" prefix from embed.FS
	staticSub, err := fs.Sub(static, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/static", http.FS(staticSub))
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"Parser": cfg.Parser,
			"Finder": cfg.ModelFinder,
			"Prover": cfg.TheoremProver,
		})
	})

	go srv.ExpireSessions(ctx, cfg.SessionTTL, time.Minute)

	httpServer := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting web server", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
