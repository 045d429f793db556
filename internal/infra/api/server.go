package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hosted-checkout/internal/usecase"
)

// PayLimiter bounds payment attempts per checkout session.
type PayLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimit struct {
	Limiter PayLimiter
	Limit   int
	Window  time.Duration
}

// Server exposes the checkout state machine over HTTP.
type Server struct {
	checkout usecase.CheckoutUseCase
	auth     *MerchantAuth
	rate     RateLimit
	timeout  time.Duration
	log      *zerolog.Logger
}

// NewServer wires the checkout API. auth may be nil to leave session creation
// open; a zero RateLimit disables pay throttling.
func NewServer(checkout usecase.CheckoutUseCase, auth *MerchantAuth, rate RateLimit, timeout time.Duration, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http_api").Logger()
	return &Server{checkout: checkout, auth: auth, rate: rate, timeout: timeout, log: &l}
}

// Router returns the fully assembled handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))
	if s.timeout > 0 {
		r.Use(Timeout(s.timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.auth.Require).Post("/checkout/create", s.handleCreate)
		r.Route("/checkout/{checkout_id}", func(r chi.Router) {
			r.Use(CheckoutID)
			r.Get("/", s.handleGet)
			r.With(s.limitPayAttempts).Post("/pay", s.handlePay)
			r.Post("/cancel", s.handleCancel)
		})
		r.Get("/invoices/{invoice_id}", s.handleInvoice)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "Route not found", nil)
	})
	return r
}
