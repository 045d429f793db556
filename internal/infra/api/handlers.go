package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/infra/logging"
	"hosted-checkout/internal/infra/metrics"
	"hosted-checkout/internal/infra/redis"
	"hosted-checkout/internal/usecase"
)

const maxBodyBytes = 1 << 20

type payRequest struct {
	Method  string         `json:"method"`
	Details map[string]any `json:"details"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dst)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateCheckoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Request body is not valid JSON",
			[]domain.FieldError{{Field: "body", Message: err.Error()}})
		return
	}
	res, err := s.checkout.Create(r.Context(), req)
	if err != nil {
		writeUseCaseError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeData(w, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.checkout.Get(r.Context(), chi.URLParam(r, "checkout_id"))
	if err != nil {
		writeUseCaseError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeData(w, sess)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Request body is not valid JSON", nil)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Payment method is required", nil)
		return
	}
	res, err := s.checkout.AttemptPayment(r.Context(), chi.URLParam(r, "checkout_id"),
		adapter.PaymentAttempt{Method: req.Method, Details: req.Details})
	if err != nil {
		writeUseCaseError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeData(w, res)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	res, err := s.checkout.Cancel(r.Context(), chi.URLParam(r, "checkout_id"))
	if err != nil {
		writeUseCaseError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeData(w, res)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	doc, err := s.checkout.Invoice(r.Context(), chi.URLParam(r, "invoice_id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, "Invoice not found", nil)
		return
	}
	if err != nil {
		writeUseCaseError(w, logging.With(r.Context(), s.log), err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

// limitPayAttempts throttles pay calls per checkout id. Limiter errors fail open.
func (s *Server) limitPayAttempts(next http.Handler) http.Handler {
	if s.rate.Limiter == nil || s.rate.Limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := redis.PayAttemptKey(chi.URLParam(r, "checkout_id"))
		ok, err := s.rate.Limiter.Allow(r.Context(), key, s.rate.Limit, s.rate.Window)
		if err != nil {
			l := logging.With(r.Context(), s.log)
			l.Warn().Err(err).Msg("pay rate limiter unavailable")
		} else if !ok {
			metrics.IncPayRateLimited()
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "Too many payment attempts", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
