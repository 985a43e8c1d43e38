package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/urfave/cli/v3"

	"footballhub/internal/app"
	"footballhub/internal/authz"
	"footballhub/internal/config"
	"footballhub/internal/handlers"
	"footballhub/internal/logging"
	"footballhub/internal/middleware"
	"footballhub/internal/migrations"
	"footballhub/internal/providers"
	"footballhub/internal/routing"
)

// Version задаётся через ldflags при сборке.
var Version = "dev"

func main() {
	var configFile string

	cmd := &cli.Command{
		Name:    "server",
		Usage:   "footballhub OTP delivery and verification service",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to YAML configuration file",
				Destination: &configFile,
				Sources:     cli.EnvVars("CONFIG"),
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			return serve(ctx, configFile)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP API",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return serve(ctx, configFile)
				},
			},
			{
				Name:  "config-status",
				Usage: "Print provider diagnostics and channel plans without sending anything",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return configStatus(configFile)
				},
			},
			{
				Name:      "migrate",
				Usage:     "Apply or inspect Postgres migrations",
				ArgsUsage: "[up|down|status]",
				Action: func(ctx context.Context, c *cli.Command) error {
					return migrate(ctx, configFile, c.Args().First())
				},
			},
			{
				Name:  "issue-token",
				Usage: "Sign an operator JWT for the admin API",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "user", Value: 1, Usage: "user id claim"},
					&cli.StringFlag{Name: "role", Value: "admin", Usage: "admin or support"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "token lifetime"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return issueToken(configFile, int(c.Int("user")), c.String("role"), c.Duration("ttl"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func load(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.Log.Level, cfg.Log.Format), nil
}

func serve(ctx context.Context, path string) error {
	cfg, logger, err := load(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func configStatus(path string) error {
	cfg, logger, err := load(path)
	if err != nil {
		return err
	}
	texts, err := providers.NewTexts()
	if err != nil {
		return err
	}
	registry := app.BuildRegistry(cfg.Providers, texts, logger)
	router := routing.NewRouter(cfg.Routing, registry.ConfiguredChannels()...)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(handlers.BuildConfigStatus(registry, router, cfg.OTP.DevMode))
}

func migrate(ctx context.Context, path, direction string) error {
	cfg, _, err := load(path)
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return errors.New("database.url (DATABASE_URL) is required for migrate")
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "", "up":
		return migrations.Up(ctx, db)
	case "down":
		return migrations.Down(ctx, db)
	case "status":
		return migrations.Status(ctx, db)
	}
	return fmt.Errorf("unknown migrate direction %q", direction)
}

func issueToken(path string, userID int, role string, ttl time.Duration) error {
	cfg, _, err := load(path)
	if err != nil {
		return err
	}
	roleID := authz.RoleAdmin
	switch role {
	case "admin":
	case "support":
		roleID = authz.RoleSupport
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := middleware.IssueToken([]byte(cfg.Auth.JWTSecret), userID, roleID, ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
