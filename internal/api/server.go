// Package api exposes the HTTP interface for payment webhooks and
// diagnostics.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/intel"
	"github.com/agent-007-kali/intel-agent/internal/metrics"
)

// paymentFinished is the provider's terminal "payment completed" status.
const paymentFinished = "finished"

// Server wires HTTP handlers to the job store.
type Server struct {
	router chi.Router
	store  intel.JobStore
	plan   string
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. plan is the
// subscription plan granted on a completed payment.
func NewServer(store intel.JobStore, plan string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		plan:   plan,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/nowpayments_webhook", s.handlePaymentWebhook)
	r.HandleFunc("/debug", s.debugEcho)
	r.HandleFunc("/debug/*", s.debugEcho)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// webhookEvent is the provider payload shape we care about. The payer's
// email comes from customer_email only; order_id is decoded for logging but
// never used as an address.
type webhookEvent struct {
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email"`
	OrderID       string `json:"order_id"`
	PaymentID     any    `json:"payment_id"`
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var evt webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		metrics.RecordWebhookEvent("invalid_payload")
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if evt.PaymentStatus != paymentFinished {
		// Intermediate statuses (waiting, confirming, ...) are
		// acknowledged so the provider stops retrying.
		metrics.RecordWebhookEvent("ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	email := strings.TrimSpace(evt.CustomerEmail)
	if email == "" {
		s.logger.Warn("payment webhook without customer email",
			zap.String("order_id", evt.OrderID))
		metrics.RecordWebhookEvent("missing_email")
		writeError(w, http.StatusBadRequest, "no email found")
		return
	}

	s.logger.Info("payment finished, activating account",
		zap.String("user", email),
		zap.String("plan", s.plan))

	ctx := r.Context()
	sub := intel.Subscription{
		UserEmail: email,
		Status:    intel.SubscriptionActive,
		Plan:      s.plan,
	}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		s.logger.Error("subscription upsert failed", zap.String("user", email), zap.Error(err))
		metrics.RecordWebhookEvent("storage_error")
		writeError(w, http.StatusInternalServerError, "failed to activate account")
		return
	}
	if err := s.store.ActivateJob(ctx, email); err != nil {
		s.logger.Error("job activation failed", zap.String("user", email), zap.Error(err))
		metrics.RecordWebhookEvent("storage_error")
		writeError(w, http.StatusInternalServerError, "failed to activate account")
		return
	}

	metrics.RecordWebhookEvent("activated")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "account activated",
	})
}

// debugEcho acknowledges any payload on any method. Diagnostic only, for
// checking tunnel and provider connectivity.
func (s *Server) debugEcho(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
	s.logger.Debug("debug echo",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("body_bytes", len(body)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "received",
		"method":     r.Method,
		"path":       r.URL.Path,
		"body_bytes": len(body),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
