package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/crewdeck/crewdeck/internal/agent"
	"github.com/crewdeck/crewdeck/internal/auditlog"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/event"
	"github.com/crewdeck/crewdeck/internal/pushnotification"
	"github.com/crewdeck/crewdeck/internal/routine"
	"github.com/crewdeck/crewdeck/internal/task"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/clog"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

type Server struct {
	server                 *http.Server
	env                    *config.Env
	routineServer          *routine.Server
	taskServer             *task.Server
	agentServer            *agent.Server
	auditLogServer         *auditlog.Server
	eventServer            *event.Server
	pushNotificationServer *pushnotification.Server
}

func NewServer(
	env *config.Env,
	routineServer *routine.Server,
	taskServer *task.Server,
	agentServer *agent.Server,
	auditLogServer *auditlog.Server,
	eventServer *event.Server,
	pushNotificationServer *pushnotification.Server,
) *Server {
	return &Server{
		env:                    env,
		routineServer:          routineServer,
		taskServer:             taskServer,
		agentServer:            agentServer,
		auditLogServer:         auditLogServer,
		eventServer:            eventServer,
		pushNotificationServer: pushNotificationServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext. When ctx
// is cancelled (e.g. on shutdown signal), event stream contexts are also
// cancelled, allowing the server to shut down without waiting for streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		s.routineServer.Routes(r)
		s.taskServer.Routes(r)
		s.agentServer.Routes(r)
		s.auditLogServer.Routes(r)
		s.pushNotificationServer.Routes(r)
		r.Get("/timezones", handleTimezones)
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	// The event stream writes incrementally, so it bypasses the buffering
	// JSON response middleware.
	stream := chi.NewRouter()
	stream.Use(clog.SlogChiMiddleware())
	stream.Route("/api", func(r chi.Router) {
		s.eventServer.Routes(r)
	})
	mux.Handle("/api/events", stream)
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for the health endpoint.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if strings.HasPrefix(apiKey, "Bearer ") {
				apiKey = apiKey[len("Bearer "):]
			}
		}
		if apiKey == "" {
			// EventSource cannot set request headers.
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type timezonesResponse struct {
	Timezones []timezone.ZoneOption `json:"timezones"`
}

func handleTimezones(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), timezonesResponse{Timezones: timezone.Catalog()})
}
