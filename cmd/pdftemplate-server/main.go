// Command pdftemplate-server serves the template HTTP API.
//
// # Usage
//
//	pdftemplate-server -config /etc/pdftemplate.yaml
//	PDFTPL_DATA_DIR=/var/lib/pdftemplate pdftemplate-server -addr :8080
//
// Configuration is read from the optional YAML file, then from PDFTPL_*
// environment variables, then from the flags below.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/pdftemplate/auth"
	"github.com/lvillar/pdftemplate/config"
	"github.com/lvillar/pdftemplate/httpapi"
	"github.com/lvillar/pdftemplate/service"
	"github.com/lvillar/pdftemplate/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "pdftemplate-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("using the default JWT secret; set PDFTPL_JWT_SECRET in production")
	}

	templates, err := store.NewTemplates(cfg.Storage.TemplatesDir, store.WithLogger(logger))
	if err != nil {
		return err
	}
	docs, err := store.NewDocuments(cfg.Storage.UploadsDir)
	if err != nil {
		return err
	}
	images, err := store.NewImages(cfg.Storage.UploadsDir)
	if err != nil {
		return err
	}
	users, err := store.NewUsers(cfg.Storage.UsersDir)
	if err != nil {
		return err
	}

	mode, err := cfg.CheckboxMode()
	if err != nil {
		return err
	}
	svc := service.New(templates, docs, images,
		service.WithLogger(logger),
		service.WithFontsDir(cfg.Storage.FontsDir),
		service.WithCheckboxMode(mode),
	)

	authSvc, err := auth.New(users, cfg.Auth.JWTSecret,
		auth.WithCost(cfg.Auth.BcryptCost),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		return err
	}

	api := httpapi.New(svc, authSvc,
		httpapi.WithLogger(logger),
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		httpapi.WithRenderRateLimit(cfg.Server.RateLimit),
		httpapi.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		httpapi.WithImagesDir(images.Dir()),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("data_dir", cfg.Storage.DataDir),
			zap.String("version", httpapi.Version))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
