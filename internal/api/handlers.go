package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"anchord/internal/apperr"
	"anchord/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxWriteBodyBytes = 1 << 20

var validate = validator.New()

// respond runs handler and writes its result as JSON. Errors carrying a
// status answer with it and their code; anything else is a 500.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, handler func() (any, error)) {
	body, err := handler()
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) && s.opts.LogRequestError {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", w.Header().Get(requestIDHeader),
			"error", err,
		)
	}

	code, ok := apperr.CodeOf(err)
	if !ok {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Code: string(code)})
}

// handleUnknown answers every unrouted request
func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusBadRequest)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			slog.Warn("Store health check failed", "error", err)
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "anchord",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleGetTransactions lists anchors
// GET /transactions[?since=N&transaction-time-hash=H]
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		query := r.URL.Query()

		var since *int64
		if query.Has("since") {
			n, err := strconv.ParseInt(query.Get("since"), 10, 64)
			if err != nil || n < 0 {
				return nil, apperr.BadRequest(apperr.CodeInvalidTransactionNumber)
			}
			since = &n
		}

		return s.service.Transactions(r.Context(), since, query.Get("transaction-time-hash"))
	})
}

// handleWriteTransaction anchors the posted string
// POST /transactions {"anchorString": "..."}
func (s *Server) handleWriteTransaction(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		var req models.WriteRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWriteBodyBytes)).Decode(&req); err != nil {
			return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidRequestBody, err)
		}
		if err := validate.Struct(req); err != nil {
			return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidRequestBody, err)
		}

		return nil, s.service.Write(r.Context(), req.AnchorString)
	})
}

// handleTime returns the ledger time, now or at a block
// GET /time, GET /time/{hash}
func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		return s.service.Time(r.Context(), r.PathValue("hash"))
	})
}

// GET /writerlock
func (s *Server) handleWriterLock(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		return s.service.WriterLock(r.Context())
	})
}

// GET /monitors/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		return s.service.WalletBalance(r.Context())
	})
}

// GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		return s.service.ServiceVersion(), nil
	})
}

// GET /fee/{blockchainTime}
func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (any, error) {
		return s.service.NormalizedFee(r.Context(), r.PathValue("blockchainTime"))
	})
}
