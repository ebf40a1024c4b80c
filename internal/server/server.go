// Package server exposes the calculator and a gateway to the remote formula
// API over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iwvelando/taxsim/internal/dashboard"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/iwvelando/taxsim/internal/metrics"
	"github.com/iwvelando/taxsim/internal/tracing"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// FormulaAPI is the remote API surface the gateway forwards to.
type FormulaAPI interface {
	Login(ctx context.Context, email, password string) (formula.Auth, error)
	Register(ctx context.Context, name, email, password string, role formula.Role) (formula.Auth, error)
	CurrentUser(ctx context.Context, token string) (formula.User, error)
	ListFormulas(ctx context.Context, token string) ([]formula.Formula, error)
	GetFormula(ctx context.Context, token string, id int) (formula.Formula, error)
	CreateFormula(ctx context.Context, token string, draft formula.Draft) error
	DeleteFormula(ctx context.Context, token string, id int) error
	CreateTax(ctx context.Context, token string, formulaID int, tax formula.Tax) error
	UpdateTax(ctx context.Context, token string, id int, tax formula.Tax) error
	DeleteTax(ctx context.Context, token string, id int) error
	UpdateInvestment(ctx context.Context, token string, id int, investment formula.Investment) error
	ProcessFormula(ctx context.Context, token string, id, first, last int) (formula.Projection, error)
	ExportCSV(ctx context.Context, token string, id, first, last int) ([]byte, error)
}

// Options configures NewHandler.
type Options struct {
	MaxBodySize    int64
	Version        string
	AllowedOrigins []string
	Limits         validation.Limits
	// API enables the gateway routes when set.
	API   FormulaAPI
	Clock func() time.Time
}

type handler struct {
	logger      *zap.Logger
	maxBodySize int64
	version     string
	limits      validation.Limits
	api         FormulaAPI
	dashboard   *dashboard.Service
	tracer      trace.Tracer
	now         func() time.Time
}

type requestIDKey struct{}

// NewHandler constructs the HTTP handler that serves the calculator and gateway APIs.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodySize := opts.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	h := &handler{
		logger:      logger,
		maxBodySize: maxBodySize,
		version:     trimmedVersion,
		limits:      opts.Limits.WithDefaults(),
		api:         opts.API,
		tracer:      tracing.Tracer("github.com/iwvelando/taxsim/internal/server"),
		now:         now,
	}
	if opts.API != nil {
		h.dashboard = dashboard.NewService(opts.API, logger, constants.DefaultDashboardConcurrency)
	}

	r := mux.NewRouter()
	r.Use(h.requestID, h.instrument)

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/version", h.handleVersion).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Calculator
	r.HandleFunc("/api/calculator/project", h.handleProject).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/calculator/csv", h.handleProjectCSV).Methods(http.MethodPost)

	if h.api != nil {
		h.registerGateway(r)
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	if len(opts.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Content-Disposition"},
	}).Handler(r)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// requestID tags every request and response with an X-Request-ID, keeping
// the caller's id when one is sent.
func (h *handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFrom returns the request id stored in ctx by the server.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(route, r.Method, metrics.StatusLabel(rec.status)).Inc()
		h.logger.Debug("request handled",
			zap.String("op", "server.instrument"),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

// decodeBody reads a size-limited JSON body into dst. An empty body leaves
// dst untouched.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds limit of %d bytes", h.maxBodySize)
		}
		return http.StatusBadRequest, fmt.Errorf("failed to read request: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return http.StatusBadRequest, fmt.Errorf("failed to decode request: %v", err)
	}
	return 0, nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
