package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/spotify"
	"github.com/desertthunder/spotauth/internal/tokens"
	"github.com/go-redis/redis/v8"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("SPOTAUTH_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warnf("failed to load config.toml, using defaults: %v", err)
		}
	}

	opts := RunnerOpts{Config: config, Logger: logger}

	switch config.Tokens.Repository {
	case shared.RepositoryCache:
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		opts.Repo = tokens.NewCacheRepository(rdb)
	default:
		if db, err := shared.NewDatabase(config.Database.Path); err == nil {
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			dbRepo := tokens.NewDatabaseRepository(db)
			opts.Repo = dbRepo
			opts.DBRepo = dbRepo
		} else {
			logger.Warnf("failed to open token database: %v", err)
		}
	}

	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret != "" && opts.Repo != nil {
		opts.Flow = tokens.NewFlow(tokens.FlowOpts{
			ClientID:     config.Spotify.ClientID,
			ClientSecret: config.Spotify.ClientSecret,
			RedirectURI:  config.Spotify.RedirectURI,
			Logger:       logger,
		}, opts.Repo)
	}

	client := spotify.NewClient(spotify.ClientOpts{
		APIURL: config.Spotify.APIURL,
		Logger: logger,
	})
	opts.Catalog = spotify.NewCatalog(client, spotify.Defaults{
		Country: config.Defaults.Country,
		Locale:  config.Defaults.Locale,
		Market:  config.Defaults.Market,
	})

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "spotauth",
		Usage:    "Manage Spotify OAuth tokens & query the Web API",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
