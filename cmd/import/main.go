package main

import (
	"context"
	"flag"
	"strings"

	"github.com/joho/godotenv"

	"github.com/debemdeboas/blockpress/internal/config"
	"github.com/debemdeboas/blockpress/internal/db"
	"github.com/debemdeboas/blockpress/internal/draft"
	"github.com/debemdeboas/blockpress/internal/logger"
	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/repository"
	"github.com/debemdeboas/blockpress/internal/validate"
)

// Imports saved editor documents (*.json) from a directory as published posts.
func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	path := flag.String("path", "", "Path to the directory containing draft .json files")
	ownerID := flag.String("owner-id", "", "Owner user ID for the posts")
	force := flag.Bool("force", false, "Import drafts that would not pass the publish rules")
	flag.Parse()

	godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level)
	db.SetLogger(log)
	repository.SetLogger(log)

	if *path == "" || *ownerID == "" {
		log.Fatal().Msg("Both --path and --owner-id flags are required")
	}

	database := db.NewSQLite(cfg.Storage.DBPath)
	if err := database.InitDB(); err != nil {
		log.Fatal().Err(err).Msgf(config.ErrInitializeDatabaseFmt, err)
	}
	defer database.Close()

	repo := repository.NewDBPostRepository(database, cfg.Storage.CacheSize)

	drafts, err := repository.NewFSDraftSource(*path).Drafts(func(p string, err error) {
		log.Warn().Err(err).Str("file", p).Msg("Skipping undecodable draft")
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("Error reading directory")
	}

	ctx := context.Background()
	imported := 0
	for _, d := range drafts {
		if !*force && !validate.Evaluate(d.Draft) {
			log.Warn().Str("file", d.Path).Msg("Skipping draft that is not publishable")
			continue
		}

		title := draft.Title(d.Draft)
		if title == draft.DefaultTitle {
			title = strings.ReplaceAll(d.Name, "-", " ")
		}

		post := repository.NewPost(title, d.Draft, model.UserID(*ownerID))
		post.CreatedDate = d.ModTime.UTC()
		post.ModifiedDate = d.ModTime.UTC()

		if err := repo.SavePost(ctx, post); err != nil {
			log.Error().Err(err).Str("file", d.Path).Msg("Error saving post")
			continue
		}
		imported++
		log.Info().Str("file", d.Path).Str("post_id", string(post.ID)).Str("title", title).Msg("Saved post")
	}

	log.Info().Int("imported", imported).Int("found", len(drafts)).Msg("Import finished")
}
