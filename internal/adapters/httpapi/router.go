package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/gather-events/events-api/internal/platform/metrics"
)

type RouterOptions struct {
	Logger zerolog.Logger
	// Metrics enables request instrumentation and GET /metrics when set.
	Metrics *metrics.Metrics
	// LoginPerMinute bounds POST /auth/login per client IP; 0 disables the limit.
	LoginPerMinute int
}

// NewRouter wires routes and middleware. Identity is resolved inside each handler.
func NewRouter(api *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "ROUTE_NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Health endpoint used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", api.ListEvents)
		r.Post("/", api.CreateEvent)
		r.Route("/{eventId}", func(r chi.Router) {
			r.Get("/", api.GetEvent)
			r.Patch("/", api.UpdateEvent)
			r.Put("/", api.UpdateEvent)
			r.Delete("/", api.DeleteEvent)
			r.Post("/attend", api.AttendEvent)
			r.Post("/unattend", api.UnattendEvent)
		})
	})

	limiter := NewLoginLimiter(opts.LoginPerMinute, nil)
	if opts.Metrics != nil {
		limiter.OnLimited = opts.Metrics.ObserveRateLimited
	}
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", api.Register)
		r.With(limiter.Middleware).Post("/login", api.Login)
	})
	r.Get("/users/me", api.Me)

	return r
}

// requestIDField adds chi's request id to the per-request logger and echoes it to the client.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
