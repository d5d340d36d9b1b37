package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"dealdesk/auth"
	"dealdesk/deal"
	"dealdesk/metrics"
)

// AdminGuard is satisfied by auth.Guard.
type AdminGuard interface {
	RequireAdmin(token string) (auth.Claims, error)
}

// Server exposes the deal desk over HTTP. Staff routes run the guard before
// any path, query or body parsing; the deal service checks the token again.
type Server struct {
	guard        AdminGuard
	dealService  *deal.Service
	authService  *auth.Service
	logger       *slog.Logger
	collector    *metrics.Collector
	gatherer     prometheus.Gatherer
	corsOrigin   string
	cookieSecure bool
	loginLimit   *ipRateLimiter
	submitLimit  *ipRateLimiter
}

type ServerDeps struct {
	Guard        AdminGuard
	DealService  *deal.Service
	AuthService  *auth.Service
	Logger       *slog.Logger
	Collector    *metrics.Collector
	Gatherer     prometheus.Gatherer
	CORSOrigin   string
	CookieSecure bool
	LoginRate    int
	SubmitRate   int
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		guard:        deps.Guard,
		dealService:  deps.DealService,
		authService:  deps.AuthService,
		logger:       logger,
		collector:    deps.Collector,
		gatherer:     deps.Gatherer,
		corsOrigin:   deps.CORSOrigin,
		cookieSecure: deps.CookieSecure,
		loginLimit:   newIPRateLimiter(deps.LoginRate),
		submitLimit:  newIPRateLimiter(deps.SubmitRate),
	}
}

func (s *Server) routes() http.Handler {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.loginLimit == nil {
		s.loginLimit = newIPRateLimiter(0)
	}
	if s.submitLimit == nil {
		s.submitLimit = newIPRateLimiter(0)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger, s.collector))
	if s.corsOrigin != "" {
		r.Use(corsMiddleware(s.corsOrigin))
	}

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.With(s.loginLimit.middleware).Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Route("/deals", func(r chi.Router) {
			r.With(s.submitLimit.middleware).Post("/", s.handleSubmitDeal)
			r.With(s.requireAdmin).Get("/", s.handleListDeals)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleGetDeal)
				r.Patch("/status", s.handleUpdateStatus)
				r.Put("/documents/{type}", s.handleUpdateDocument)
				r.Get("/documents/{type}/url", s.handleDocumentURL)
				r.Post("/send-deal-description", s.handleSendDealDescription)
				r.Post("/send-jv-agreement", s.handleSendJvAgreement)
			})
		})

		r.With(s.requireAdmin).Post("/uploads", s.handleCreateUpload)
	})

	return r
}

// requireAdmin rejects callers without an admin session before the handler
// looks at the request, so bad input never outranks a missing token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.guard.RequireAdmin(sessionToken(r)); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) close() {
	s.loginLimit.stop()
	s.submitLimit.stop()
}
