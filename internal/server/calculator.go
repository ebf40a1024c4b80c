package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iwvelando/taxsim/internal/calculator"
	"github.com/iwvelando/taxsim/internal/metrics"
	"github.com/iwvelando/taxsim/pkg/finance"
	"github.com/iwvelando/taxsim/pkg/format"
	"github.com/iwvelando/taxsim/pkg/mathutil"
	"github.com/iwvelando/taxsim/pkg/output"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type projectRequest struct {
	Principal          *float64 `json:"principal"`
	AnnualYieldRate    *float64 `json:"annualYieldRate"`
	AdminFeeRate       *float64 `json:"adminFeeRate"`
	PerformanceFeeRate *float64 `json:"performanceFeeRate"`
	IncomeTaxRate      *float64 `json:"incomeTaxRate"`
	Periods            *int     `json:"periods"`
	Detailed           bool     `json:"detailed"`
}

// parameters overlays the request on the calculator defaults.
func (p projectRequest) parameters() finance.Parameters {
	params := calculator.DefaultParameters()
	if p.Principal != nil {
		params.Principal = *p.Principal
	}
	if p.AnnualYieldRate != nil {
		params.AnnualYieldRate = *p.AnnualYieldRate
	}
	if p.AdminFeeRate != nil {
		params.AdminFeeRate = *p.AdminFeeRate
	}
	if p.PerformanceFeeRate != nil {
		params.PerformanceFeeRate = *p.PerformanceFeeRate
	}
	if p.IncomeTaxRate != nil {
		params.IncomeTaxRate = *p.IncomeTaxRate
	}
	if p.Periods != nil {
		params.Periods = *p.Periods
	}
	return params
}

type projectResponse struct {
	Parameters          finance.Parameters `json:"parameters"`
	Points              []finance.Point    `json:"points"`
	FinalBalance        float64            `json:"finalBalance"`
	FinalBalanceDisplay string             `json:"finalBalanceDisplay"`
	Summary             finance.Summary    `json:"summary"`
	Periods             []finance.Period   `json:"periods,omitempty"`
	Duration            string             `json:"duration"`
}

func (h *handler) handleProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProject"
	started := time.Now()

	var req projectRequest
	if r.Method == http.MethodGet {
		parsed, err := parseProjectQuery(r.URL.Query())
		if err != nil {
			metrics.Projections.WithLabelValues("http", "invalid").Inc()
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return
		}
		req = parsed
	} else if status, err := h.decodeBody(w, r, &req); err != nil {
		metrics.Projections.WithLabelValues("http", "invalid").Inc()
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}

	params := req.parameters()
	_, span := h.tracer.Start(r.Context(), "calculator.project")
	defer span.End()
	span.SetAttributes(
		attribute.Int("taxsim.periods", params.Periods),
		attribute.Bool("taxsim.detailed", req.Detailed),
	)

	if err := validation.ValidateParameters(params, h.limits); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid parameters")
		metrics.Projections.WithLabelValues("http", "invalid").Inc()
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	detailed := finance.ProjectDetailed(params)
	summary := finance.Summarize(params.Principal, detailed)

	response := projectResponse{
		Parameters:          params,
		Points:              roundPoints(detailed),
		FinalBalance:        mathutil.Round(summary.FinalBalance),
		FinalBalanceDisplay: format.Currency(summary.FinalBalance),
		Summary:             roundSummary(summary),
	}
	if req.Detailed {
		response.Periods = roundPeriods(detailed)
	}

	elapsed := time.Since(started)
	response.Duration = elapsed.String()
	metrics.Projections.WithLabelValues("http", "ok").Inc()
	metrics.ProjectionDuration.Observe(elapsed.Seconds())

	h.logger.Info("projection computed",
		zap.String("op", op),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Int("periods", params.Periods),
		zap.Float64("final_balance", response.FinalBalance),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleProjectCSV(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProjectCSV"

	var req projectRequest
	if status, err := h.decodeBody(w, r, &req); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}

	params := req.parameters()
	if err := validation.ValidateParameters(params, h.limits); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	var buf bytes.Buffer
	if err := output.DetailedCsv(&buf, finance.ProjectDetailed(params)); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}
	metrics.Projections.WithLabelValues("csv", "ok").Inc()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="projection.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write CSV response", zap.String("op", op), zap.Error(err))
	}
}

func parseProjectQuery(query url.Values) (projectRequest, error) {
	var req projectRequest
	floats := []struct {
		name string
		dst  **float64
	}{
		{calculator.FieldPrincipal, &req.Principal},
		{calculator.FieldAnnualYieldRate, &req.AnnualYieldRate},
		{calculator.FieldAdminFeeRate, &req.AdminFeeRate},
		{calculator.FieldPerformanceFeeRate, &req.PerformanceFeeRate},
		{calculator.FieldIncomeTaxRate, &req.IncomeTaxRate},
	}
	for _, field := range floats {
		raw := query.Get(field.name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("%s: invalid number %q", field.name, raw)
		}
		*field.dst = &value
	}

	if raw := query.Get(calculator.FieldPeriods); raw != "" {
		periods, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%s: invalid integer %q", calculator.FieldPeriods, raw)
		}
		req.Periods = &periods
	}

	if raw := query.Get("detailed"); raw != "" {
		detailed, err := strconv.ParseBool(raw)
		if err != nil {
			return req, fmt.Errorf("detailed: invalid boolean %q", raw)
		}
		req.Detailed = detailed
	}
	return req, nil
}

func roundPoints(periods []finance.Period) []finance.Point {
	points := make([]finance.Point, len(periods))
	for i, period := range periods {
		points[i] = finance.Point{Period: period.Period, Balance: mathutil.Round(period.Balance)}
	}
	return points
}

func roundPeriods(periods []finance.Period) []finance.Period {
	rounded := make([]finance.Period, len(periods))
	for i, p := range periods {
		rounded[i] = finance.Period{
			Period:         p.Period,
			Opening:        mathutil.Round(p.Opening),
			Grown:          mathutil.Round(p.Grown),
			Gain:           mathutil.Round(p.Gain),
			AdminFee:       mathutil.Round(p.AdminFee),
			PerformanceFee: mathutil.Round(p.PerformanceFee),
			IncomeTax:      mathutil.Round(p.IncomeTax),
			Balance:        mathutil.Round(p.Balance),
		}
	}
	return rounded
}

func roundSummary(s finance.Summary) finance.Summary {
	return finance.Summary{
		Principal:            mathutil.Round(s.Principal),
		FinalBalance:         mathutil.Round(s.FinalBalance),
		TotalGain:            mathutil.Round(s.TotalGain),
		TotalAdminFees:       mathutil.Round(s.TotalAdminFees),
		TotalPerformanceFees: mathutil.Round(s.TotalPerformanceFees),
		TotalIncomeTax:       mathutil.Round(s.TotalIncomeTax),
		NetReturnPercent:     mathutil.Round(s.NetReturnPercent),
	}
}
