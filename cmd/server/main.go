package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/blockpress/internal/auth"
	"github.com/debemdeboas/blockpress/internal/config"
	"github.com/debemdeboas/blockpress/internal/db"
	"github.com/debemdeboas/blockpress/internal/logger"
	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/render"
	"github.com/debemdeboas/blockpress/internal/repository"
	"github.com/debemdeboas/blockpress/internal/server"
	"github.com/debemdeboas/blockpress/internal/sse"
	"github.com/debemdeboas/blockpress/internal/validate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	envErr := godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("No .env file loaded")
	}
	config.SetLogger(log)
	db.SetLogger(log)
	repository.SetLogger(log)
	render.SetLogger(log)
	auth.SetLogger(log)
	server.SetLogger(log)
	validate.SetLogger(log)

	database := db.NewSQLite(cfg.Storage.DBPath)
	if err := database.InitDB(); err != nil {
		log.Fatal().Err(err).Msgf(config.ErrInitializeDatabaseFmt, err)
	}
	defer database.Close()

	repo := repository.NewDBPostRepository(database, cfg.Storage.CacheSize)

	provider, opts := authProvider(log, cfg)
	opts = append(opts, server.WithSite(cfg.Site.Name, cfg.Render.SyntaxTheme))

	if cfg.Storage.S3.Enabled {
		archive, err := repository.NewS3Archive(context.Background(), repository.S3Options{
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			Bucket:          cfg.Storage.S3.Bucket,
			Prefix:          cfg.Storage.S3.Prefix,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure S3 archive")
		}
		opts = append(opts, server.WithArchiver(archive))
	}

	srv := server.New(repo, provider, sse.NewSSEClients(), opts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
}

// authProvider picks the configured provider. With auth disabled every
// request is attributed to the configured user.
func authProvider(log zerolog.Logger, cfg *config.Config) (auth.AuthProvider, []server.Option) {
	userID := model.UserID(cfg.Auth.UserID)

	if !cfg.Auth.Enabled {
		log.Warn().Msg("Authentication disabled")
		return auth.NewAnonymousProvider(userID), nil
	}

	switch cfg.Auth.Type {
	case "clerk":
		return auth.NewClerkAuthProvider(os.Getenv("CLERK_API")), nil
	default:
		p, err := auth.NewEd25519AuthProvider(os.Getenv("ED25519_PUBKEY"), cfg.Auth.HeaderName, userID)
		if err != nil {
			log.Fatal().Err(err).Msgf(config.ErrCreateProviderFmt, err)
		}
		return p, []server.Option{server.WithChallenge(p)}
	}
}
