// Package http exposes the treasury services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/address"
	"tesouraria/internal/cache"
	applog "tesouraria/internal/log"
	"tesouraria/internal/middleware/ratelimit"
	"tesouraria/internal/middleware/security"
	"tesouraria/internal/middleware/trace"
	"tesouraria/internal/services"
)

// readyTimeout bounds the readiness probe.
const readyTimeout = 2 * time.Second

// Services are the application services the routes call into.
type Services struct {
	Organization *services.OrganizationService
	Members      *services.MemberService
	Payments     *services.PaymentService
	Treasury     *services.TreasuryService
	Ledger       *services.LedgerService
	Events       *services.EventService
	Dashboard    *services.DashboardService
	Address      *address.Client
}

// Options tune the server. Zero values take defaults.
type Options struct {
	RateLimit      ratelimit.Config
	TrustedProxies []string
	// Ready reports whether dependencies (the database) answer.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	svc    Services
	logger *applog.Logger

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	ready    func(context.Context) error
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		svc:      svc,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		detector: detector,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		ready:    opts.Ready,
		now:      time.Now,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger, trace.RequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		}))

		api.Route("/cities", func(r chi.Router) {
			r.Get("/", s.handleListCities)
			r.Post("/", s.handleCreateCity)
			r.Get("/{cityID}", s.handleGetCity)
		})
		api.Route("/teams", func(r chi.Router) {
			r.Get("/", s.handleListTeams)
			r.Post("/", s.handleCreateTeam)
			r.Get("/{teamID}", s.handleGetTeam)
			r.Put("/{teamID}", s.handleUpdateTeam)
			r.Delete("/{teamID}", s.handleDeleteTeam)
		})
		api.Route("/members", func(r chi.Router) {
			r.Get("/", s.handleListMembers)
			r.Post("/", s.handleCreateMember)
			r.Get("/stats", s.handleMemberStats)
			r.Get("/{memberID}", s.handleGetMember)
			r.Put("/{memberID}", s.handleUpdateMember)
			r.Delete("/{memberID}", s.handleDeleteMember)
		})
		api.Route("/payments", func(r chi.Router) {
			r.Get("/", s.handleListPayments)
			r.Post("/", s.handleCreatePayment)
			r.Get("/{paymentID}", s.handleGetPayment)
			r.Delete("/{paymentID}", s.handleDeletePayment)
		})
		api.Get("/settings/dues", s.handleGetDues)
		api.Put("/settings/dues", s.handleSetDues)
		api.Route("/treasury", func(r chi.Router) {
			r.Get("/teams/{teamID}", s.handleTeamStatus)
			r.Get("/teams/{teamID}/breakdown", s.handleTeamBreakdown)
			r.Get("/cities/{cityID}", s.handleCitySummary)
		})
		api.Route("/ledger", func(r chi.Router) {
			r.Get("/", s.handleCashBook)
			r.Post("/", s.handleCreateEntry)
			r.Delete("/{entryID}", s.handleDeleteEntry)
		})
		api.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/{eventID}", s.handleGetEvent)
			r.Post("/{eventID}/sales", s.handleRecordSale)
			r.Get("/{eventID}/summary", s.handleSalesSummary)
		})
		api.Get("/dashboard", s.handleDashboard)
		api.Get("/address/{cep}", s.handleAddress)
	})
	return r
}

// recoverer turns a handler panic into a logged 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).
					ErrorContext(r.Context(), "Handler panic", "panic", rec, applog.FieldPath, r.URL.Path)
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type metricsBody struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
	Address   *cache.Stats              `json:"address_cache,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	body := metricsBody{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
	if s.svc.Address != nil {
		st := s.svc.Address.Cache().Stats()
		body.Address = &st
	}
	writeJSON(w, http.StatusOK, body)
}
