package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/realm-console/pkg/config"
	"github.com/tendant/realm-console/pkg/console"
	"github.com/tendant/realm-console/pkg/errorpage"
	"github.com/tendant/realm-console/pkg/metrics"
	"github.com/tendant/realm-console/pkg/oauthclient"
	"github.com/tendant/realm-console/pkg/realm"
	"github.com/tendant/realm-console/pkg/theme"
	"github.com/tendant/realm-console/pkg/txn"
)

func main() {
	envFile := flag.String("env", ".env", "path of an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(-1)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()

	var beginner txn.Beginner = txn.LocalBeginner{}
	repoConfig := realm.RepositoryConfig{DataDir: cfg.DataDir}
	if cfg.Persistence == "postgres" || cfg.Persistence == "postgresql" {
		pool, err := dbutils.NewDbPool(ctx, cfg.Database.ToDbConfig())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host, "port", cfg.Database.Port, "user", cfg.Database.User, "error", err)
			os.Exit(-1)
		}
		defer pool.Close()

		if err := realm.EnsureSchema(ctx, pool); err != nil {
			slog.Error("Failed to create realm schema", "error", err)
			os.Exit(-1)
		}
		repoConfig.DB = pool
		beginner = txn.NewPgxBeginner(pool)
	}

	realms, err := realm.NewRepository(cfg.Persistence, repoConfig)
	if err != nil {
		slog.Error("Failed to create realm repository", "persistence", cfg.Persistence, "error", err)
		os.Exit(-1)
	}
	if _, err := realm.Bootstrap(ctx, realms, realm.Realm{Name: cfg.AdminRealm, DisplayName: "Administration"}); err != nil {
		slog.Error("Failed to bootstrap admin realm", "realm", cfg.AdminRealm, "error", err)
		os.Exit(-1)
	}

	clients, err := oauthclient.NewRepository(cfg.Persistence, cfg.DataDir)
	if err != nil {
		slog.Error("Failed to create client repository", "persistence", cfg.Persistence, "error", err)
		os.Exit(-1)
	}

	var themes theme.Provider = theme.NewFSProvider(theme.Dir(cfg.Theme.Dir), cfg.Theme.Default)
	if cfg.Theme.CacheEnabled {
		cached, err := theme.NewCachingProvider(themes, cfg.Theme.CacheSize)
		if err != nil {
			slog.Error("Failed to create theme cache", "error", err)
			os.Exit(-1)
		}
		defer cached.Close()
		themes = cached
	}
	slog.Info("Themes configured", "dir", cfg.Theme.Dir, "default", cfg.Theme.Default, "cache", cfg.Theme.CacheEnabled)

	opts := []errorpage.Option{
		errorpage.WithLogger(logger),
		errorpage.WithBasePath(cfg.BasePath),
		errorpage.WithResourcesVersion(cfg.Theme.ResourcesVersion),
	}
	if cfg.MetricsEnabled {
		opts = append(opts, errorpage.WithRecorder(metrics.NewRecorder()))
	}
	pages := errorpage.NewHandler(
		realm.NewResolver(realms, cfg.AdminRealm),
		themes,
		theme.NewHTMLEngine(cfg.Theme.CacheEnabled),
		opts...,
	)

	server := app.DefaultApp()
	app.RegisterHealthzRoutes(server.R)

	console.Mount(server.R, console.RouterConfig{
		Handle:   console.NewHandle(realms, clients, logger),
		Pages:    pages,
		Beginner: beginner,
		BasePath: cfg.BasePath,
		Metrics:  cfg.MetricsEnabled,
		Logger:   logger,
	})
	slog.Info("Realm console configured", "base_path", cfg.BasePath, "persistence", cfg.Persistence, "admin_realm", cfg.AdminRealm)

	server.Run()
}
