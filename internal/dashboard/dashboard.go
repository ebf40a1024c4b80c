// Package dashboard aggregates every formula of a user into one chart: each
// formula is processed by the remote API and the after-tax values are merged
// by month.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/iwvelando/taxsim/internal/apiclient"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the remote API the dashboard needs.
type API interface {
	ListFormulas(ctx context.Context, token string) ([]formula.Formula, error)
	ProcessFormula(ctx context.Context, token string, id, first, last int) (formula.Projection, error)
}

// ChartRow holds the after-tax value of every formula for one month.
type ChartRow struct {
	Month  int                `json:"month"`
	Values map[string]float64 `json:"values"`
}

// Result is a loaded dashboard.
type Result struct {
	Formulas    []formula.Formula    `json:"formulas"`
	Series      []string             `json:"series"`
	Rows        []ChartRow           `json:"rows"`
	Projections []formula.Projection `json:"-"`
}

// Service loads dashboards.
type Service struct {
	api         API
	logger      *zap.Logger
	concurrency int
}

// NewService creates a Service. A non-positive concurrency uses
// constants.DefaultDashboardConcurrency.
func NewService(api API, logger *zap.Logger, concurrency int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = constants.DefaultDashboardConcurrency
	}
	return &Service{api: api, logger: logger, concurrency: concurrency}
}

// Load lists the user's formulas and processes each over [first, last]
// months. Any failure fails the whole load.
func (s *Service) Load(ctx context.Context, token string, first, last int) (Result, error) {
	if err := validation.ValidateMonthRange(first, last); err != nil {
		return Result{}, fmt.Errorf("%w: %v", apiclient.ErrInvalidRange, err)
	}

	started := time.Now()
	formulas, err := s.api.ListFormulas(ctx, token)
	if err != nil {
		return Result{}, fmt.Errorf("load dashboard formulas: %w", err)
	}

	projections := make([]formula.Projection, len(formulas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range formulas {
		i, f := i, f
		g.Go(func() error {
			projection, err := s.api.ProcessFormula(gctx, token, f.ID, first, last)
			if err != nil {
				return fmt.Errorf("process formula %d (%s): %w", f.ID, f.Name, err)
			}
			projections[i] = projection
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("dashboard load failed",
			zap.String("op", "dashboard.Load"),
			zap.Error(err),
		)
		return Result{}, err
	}

	series := seriesNames(formulas)
	result := Result{
		Formulas:    formulas,
		Series:      series,
		Rows:        Merge(series, projections),
		Projections: projections,
	}

	s.logger.Debug("dashboard loaded",
		zap.String("op", "dashboard.Load"),
		zap.Int("formulas", len(formulas)),
		zap.Int("months", len(result.Rows)),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

// seriesNames labels each formula by name, adding the id when two formulas
// share a name.
func seriesNames(formulas []formula.Formula) []string {
	counts := make(map[string]int, len(formulas))
	for _, f := range formulas {
		counts[f.Name]++
	}
	names := make([]string, len(formulas))
	for i, f := range formulas {
		names[i] = f.Name
		if counts[f.Name] > 1 {
			names[i] = f.Name + " #" + strconv.Itoa(f.ID)
		}
	}
	return names
}

// Merge joins projections into chart rows sorted by month. series[i] labels
// projections[i].
func Merge(series []string, projections []formula.Projection) []ChartRow {
	byMonth := make(map[int]*ChartRow)
	for i, projection := range projections {
		for _, row := range projection.Rows {
			chartRow, ok := byMonth[row.Month]
			if !ok {
				chartRow = &ChartRow{Month: row.Month, Values: make(map[string]float64)}
				byMonth[row.Month] = chartRow
			}
			chartRow.Values[series[i]] = row.AfterTax
		}
	}

	rows := make([]ChartRow, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows
}
