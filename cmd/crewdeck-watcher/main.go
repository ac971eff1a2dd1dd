package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crewdeck/crewdeck/internal/client"
	"github.com/crewdeck/crewdeck/internal/watcher"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

func main() {
	env, err := watcher.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(env.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	loc, err := timezone.LoadZone(env.Timezone)
	if err != nil {
		slog.Error("invalid timezone", "timezone", env.Timezone, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	w := watcher.New(client.New(env.ServerURL, env.APIKey), loc)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("watcher error", "error", err)
		os.Exit(1)
	}
}
