// Package forecast defines the data structures related to a given forecast and
// includes functions for computing the forecasts.
package forecast

import (
	"fmt"

	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/pkg/adapters"
	"github.com/iwvelando/taxsim/pkg/finance"
	"github.com/iwvelando/taxsim/pkg/optimization"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.uber.org/zap"
)

// Forecast holds all information related to a specific forecast.
type Forecast struct {
	Name       string             `json:"name"`
	Parameters finance.Parameters `json:"parameters"`
	Periods    []finance.Period   `json:"periods"`
	Points     []finance.Point    `json:"points"`
	Summary    finance.Summary    `json:"summary"`

	// Optimization is set when a goal seek adjusted this scenario.
	Optimization *optimization.Summary `json:"optimization,omitempty"`
}

// FinalBalance is the balance after the last period, or the principal when
// nothing was projected.
func (f Forecast) FinalBalance() float64 {
	return f.Summary.FinalBalance
}

// Compute validates params and projects them.
func Compute(name string, params finance.Parameters, limits validation.Limits) (Forecast, error) {
	if err := validation.ValidateParameters(params, limits); err != nil {
		return Forecast{}, fmt.Errorf("scenario %s: %w", name, err)
	}

	periods := finance.ProjectDetailed(params)
	points := make([]finance.Point, len(periods))
	for i, period := range periods {
		points[i] = finance.Point{Period: period.Period, Balance: period.Balance}
	}

	return Forecast{
		Name:       name,
		Parameters: params,
		Periods:    periods,
		Points:     points,
		Summary:    finance.Summarize(params.Principal, periods),
	}, nil
}

// GetForecast processes the Forecasts for all Scenarios.
func GetForecast(logger *zap.Logger, conf config.Configuration) ([]Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var results []Forecast
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "forecast.GetForecast"),
			)
			continue
		}

		result, err := Compute(scenario.Name, adapters.ScenarioToParameters(scenario), conf.Limits)
		if err != nil {
			return results, err
		}

		logger.Debug("scenario projected",
			zap.String("op", "forecast.GetForecast"),
			zap.String("scenario", scenario.Name),
			zap.Int("periods", len(result.Points)),
			zap.Float64("final_balance", result.FinalBalance()),
		)
		results = append(results, result)
	}

	return results, nil
}
