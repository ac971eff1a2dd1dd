package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewdeck/crewdeck/internal/agent"
	agentrepo "github.com/crewdeck/crewdeck/internal/agent/repositoryimpl"
	"github.com/crewdeck/crewdeck/internal/auditlog"
	auditlogrepo "github.com/crewdeck/crewdeck/internal/auditlog/repositoryimpl"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/event"
	"github.com/crewdeck/crewdeck/internal/eventbus"
	"github.com/crewdeck/crewdeck/internal/pushnotification"
	pushsubrepo "github.com/crewdeck/crewdeck/internal/pushsubscription/repositoryimpl"
	"github.com/crewdeck/crewdeck/internal/routine"
	routinerepo "github.com/crewdeck/crewdeck/internal/routine/repositoryimpl"
	"github.com/crewdeck/crewdeck/internal/task"
	taskrepo "github.com/crewdeck/crewdeck/internal/task/repositoryimpl"
	"github.com/crewdeck/crewdeck/pkg/clog"
	"github.com/crewdeck/crewdeck/pkg/panicerr"
	"github.com/crewdeck/crewdeck/pkg/storage"

	server "github.com/crewdeck/crewdeck/internal"
)

func main() {
	// "sentinel" supervises a child copy of this binary; the child is
	// spawned with the "run" subcommand.
	if len(os.Args) > 1 && os.Args[1] == "sentinel" {
		runSentinel()
		return
	}

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	routineRepo := routinerepo.NewYAMLRepository(store)
	taskRepo := taskrepo.NewYAMLRepository(store)
	agentRepo := agentrepo.NewYAMLRepository(store)
	auditLogRepo := auditlogrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Setup servers
	routineService := routine.NewService(routineRepo, taskRepo, auditLogRepo, agentRepo, bus)
	routineServer := routine.NewServer(routineRepo, routineService, bus)
	taskServer := task.NewServer(taskRepo, bus)
	agentServer := agent.NewServer(agentRepo)
	auditLogServer := auditlog.NewServer(auditLogRepo)
	eventServer := event.NewServer(bus)

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushNotificationServer := pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender)
	pushDispatcher := pushnotification.NewDispatcher(bus, routineRepo, taskRepo, pushSender)

	srv := server.NewServer(
		env,
		routineServer,
		taskServer,
		agentServer,
		auditLogServer,
		eventServer,
		pushNotificationServer,
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	dispatch := panicerr.SafeContext(func(ctx context.Context) error {
		pushDispatcher.Start(ctx)
		return nil
	})
	go func() {
		if err := dispatch(ctx); err != nil {
			slog.Error("push dispatcher crashed", "error", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
