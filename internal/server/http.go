package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"BankLedger/internal/ingestion"
	"BankLedger/internal/observability"
	"BankLedger/internal/persistence"
	"BankLedger/internal/projection"
	"BankLedger/internal/query"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer serves the read-side JSON API, admin endpoints, health
// checks and Prometheus metrics. All writes flow through NATS (or the
// admin injection endpoints, which feed the same core channel); the
// HTTP surface never touches core state directly.
type HTTPServer struct {
	httpServer    *http.Server
	addr          string
	healthChecker *observability.HealthChecker
	logger        zerolog.Logger
}

// ServerDeps holds the dependencies the HTTP handlers need.
type ServerDeps struct {
	DB            *sql.DB
	QueryService  *query.Service
	Submitter     *ingestion.DirectSubmitter
	SnapshotMgr   *persistence.SnapshotManager
	HealthChecker *observability.HealthChecker
	Clock         func() int64 // injected; savings interest is derived from it
}

func NewHTTPServer(addr string, deps *ServerDeps) *HTTPServer {
	s := &HTTPServer{
		addr:          addr,
		healthChecker: deps.HealthChecker,
		logger:        observability.NewLogger("http"),
	}

	clock := deps.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().Unix() }
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/accounts/{identity}/balance", func(w http.ResponseWriter, r *http.Request) {
		resp, err := deps.QueryService.GetBalance(r.Context(), r.PathValue("identity"))
		s.respond(w, resp, err)
	})

	mux.HandleFunc("GET /v1/accounts/{identity}/savings", func(w http.ResponseWriter, r *http.Request) {
		resp, err := deps.QueryService.GetSavings(r.Context(), r.PathValue("identity"), clock())
		s.respond(w, resp, err)
	})

	mux.HandleFunc("GET /v1/accounts/{identity}/loans", func(w http.ResponseWriter, r *http.Request) {
		loans, err := deps.QueryService.GetLoans(r.Context(), r.PathValue("identity"))
		if err != nil {
			s.respond(w, nil, err)
			return
		}
		count, err := deps.QueryService.GetLoanCount(r.Context(), r.PathValue("identity"))
		s.respond(w, map[string]interface{}{"loans": loans, "count": count}, err)
	})

	mux.HandleFunc("GET /v1/accounts/{identity}/loans/{index}", func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			s.badRequest(w, "invalid loan index")
			return
		}
		resp, err := deps.QueryService.GetLoan(r.Context(), r.PathValue("identity"), index)
		s.respond(w, resp, err)
	})

	mux.HandleFunc("GET /v1/accounts/{identity}/history", func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r, 100, 500)
		before := parseCursor(r, "before")
		records, err := deps.QueryService.GetTransactionHistory(r.Context(), r.PathValue("identity"), limit, before)
		s.respond(w, map[string]interface{}{"records": records}, err)
	})

	mux.HandleFunc("GET /v1/offers", func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r, 50, 200)
		after := parseCursor(r, "after")
		offers, err := deps.QueryService.GetActiveOffers(r.Context(), limit, after)
		s.respond(w, map[string]interface{}{"offers": offers}, err)
	})

	mux.HandleFunc("GET /v1/offers/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.badRequest(w, "invalid offer id")
			return
		}
		resp, err := deps.QueryService.GetOffer(r.Context(), id)
		s.respond(w, resp, err)
	})

	// Admin endpoints. Deployment fronts these with network policy;
	// there is no auth layer in the binary.
	mux.HandleFunc("POST /v1/admin/accounts", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Identity string `json:"identity"`
			Nonce    int64  `json:"nonce"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, "invalid body")
			return
		}
		err := deps.Submitter.InjectCreateAccount(r.Context(), body.Identity, body.Nonce)
		s.respondAccepted(w, err)
	})

	mux.HandleFunc("POST /v1/admin/deposits", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Identity string `json:"identity"`
			Amount   int64  `json:"amount"`
			Nonce    int64  `json:"nonce"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, "invalid body")
			return
		}
		err := deps.Submitter.InjectDeposit(r.Context(), body.Identity, body.Amount, body.Nonce)
		s.respondAccepted(w, err)
	})

	mux.HandleFunc("POST /v1/admin/projections/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if err := projection.Rebuild(r.Context(), deps.DB); err != nil {
			s.internalError(w, fmt.Sprintf("rebuild failed: %v", err))
			return
		}
		s.respond(w, map[string]interface{}{"rebuilt": true}, nil)
	})

	mux.HandleFunc("GET /v1/admin/oplog", func(w http.ResponseWriter, r *http.Request) {
		latestSeq, err := deps.SnapshotMgr.GetLatestSequence(r.Context())
		s.respond(w, map[string]interface{}{"last_sequence": latestSeq}, err)
	})

	mux.HandleFunc("GET /v1/admin/integrity", func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.QueryService.VerifyIntegrity(r.Context())
		s.respond(w, report, err)
	})

	mux.HandleFunc("/healthz", deps.HealthChecker.LivenessHandler)
	mux.HandleFunc("/readyz", deps.HealthChecker.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start runs the server until ctx is cancelled (blocking).
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) respond(w http.ResponseWriter, payload interface{}, err error) {
	if errors.Is(err, query.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		s.internalError(w, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) respondAccepted(w http.ResponseWriter, err error) {
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (s *HTTPServer) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (s *HTTPServer) internalError(w http.ResponseWriter, msg string) {
	s.logger.Error().Str("error", msg).Msg("request failed")
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn().Err(err).Msg("encode response")
	}
}

func parseLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}

func parseCursor(r *http.Request, name string) *int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
