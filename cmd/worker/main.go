// Package main - служебные команды приёмной кампании.
//
// Команды:
//
//	worker archive -event event.yaml   переименовать и заархивировать
//	                                   Slack-каналы проектов события
//	worker token -user alice -roles REVIEWER -ttl 12h
//	                                   выпустить bearer-токен для API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cohort-hub/admissions/config"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/infrastructure/external/slack"
	"github.com/cohort-hub/admissions/internal/interface/http/handlers"
)

const usage = `usage:
  worker archive -event <file.yaml>
  worker token -user <username> -roles <ROLE,...> [-ttl 12h]`

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := setupLogger(cfg)

	switch args[0] {
	case "archive":
		return runArchive(ctx, cfg, log, args[1:])
	case "token":
		return runToken(cfg, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE
// ══════════════════════════════════════════════════════════════════════════════

func runArchive(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	eventPath := fs.String("event", "", "path to the event YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventPath == "" {
		return errors.New("archive: -event is required")
	}

	if !cfg.Features.Enabled(config.FeatureSlackArchive) {
		return errors.New("archive: FEATURE_SLACK_ARCHIVE is off")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. ОПИСАНИЕ СОБЫТИЯ
	// ─────────────────────────────────────────────────────────────────────────
	f, err := os.Open(*eventPath)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	event, err := slack.DecodeEvent(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. SLACK CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	clientCfg := slack.DefaultClientConfig(cfg.Slack.BotToken)
	clientCfg.BaseURL = cfg.Slack.BaseURL
	clientCfg.Timeout = cfg.Slack.Timeout
	clientCfg.Logger = log

	client, err := slack.NewClient(clientCfg)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. АРХИВАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("archiving event channels",
		"event_id", event.ID,
		"event", event.Name,
		"projects", len(event.Projects),
	)

	start := time.Now()
	result, err := slack.NewArchiver(client, log).ArchiveEventChannels(ctx, event)

	log.Info("archive finished",
		"archived", len(result.Archived),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
		"duration", time.Since(start).String(),
		"breaker", client.BreakerState().String(),
	)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// TOKEN
// ══════════════════════════════════════════════════════════════════════════════

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "username (sub claim)")
	roles := fs.String("roles", "", "comma-separated roles: REVIEWER, ADMIN, STUDENT")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("token: AUTH_JWT_SECRET is required")
	}

	caller := access.Caller{Username: *user}
	for _, raw := range strings.Split(*roles, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		role, ok := access.ParseRole(raw)
		if !ok {
			return fmt.Errorf("token: unknown role %q", raw)
		}
		caller.Roles = append(caller.Roles, role)
	}
	if len(caller.Roles) == 0 {
		return errors.New("token: at least one role is required")
	}

	auth, err := handlers.NewJWTAuth(handlers.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	})
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	token, err := auth.Issue(caller, *ttl, time.Now())
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Println(token)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
