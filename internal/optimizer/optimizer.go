// Package optimizer solves scenario goal seeks: it adjusts one projection
// input until the final balance reaches a configured target.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/internal/forecast"
	"github.com/iwvelando/taxsim/pkg/adapters"
	"github.com/iwvelando/taxsim/pkg/finance"
	formatutil "github.com/iwvelando/taxsim/pkg/format"
	"github.com/iwvelando/taxsim/pkg/optimization"
	"go.uber.org/zap"
)

// Runner executes the goal-seek directives of a configuration.
type Runner struct {
	logger *zap.Logger
	conf   *config.Configuration
}

type scenarioTarget struct {
	scenarioIndex int
	scenarioName  string
	target        *config.TargetConfig
	original      float64
}

type evaluation struct {
	value   float64
	balance float64
}

// Result summarizes optimizer adjustments keyed by scenario name.
type Result struct {
	Summaries map[string]optimization.Summary
}

// Empty indicates whether any optimizer adjustments were produced.
func (r Result) Empty() bool {
	return len(r.Summaries) == 0
}

// Apply attaches optimizer summaries to the provided forecast results.
func (r Result) Apply(forecasts []forecast.Forecast) {
	if len(r.Summaries) == 0 {
		return
	}
	for i := range forecasts {
		summary, ok := r.Summaries[forecasts[i].Name]
		if !ok {
			continue
		}
		forecasts[i].Optimization = &summary
	}
}

// NewRunner constructs a Runner for the provided configuration.
func NewRunner(logger *zap.Logger, conf *config.Configuration) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, conf: conf}, nil
}

// Run executes all goal-seek directives and writes each solved value back
// into the configuration, so a later forecast uses it.
func (r *Runner) Run() (*Result, error) {
	targets, err := r.collectTargets()
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]optimization.Summary, len(targets))
	for _, target := range targets {
		summary, err := r.solve(target)
		if err != nil {
			return nil, err
		}
		summaries[target.scenarioName] = summary

		r.logger.Info("optimizer adjusted scenario field",
			zap.String("op", "optimizer.Run"),
			zap.String("scenario", target.scenarioName),
			zap.String("field", summary.Field),
			zap.Float64("original", summary.Original),
			zap.Float64("value", summary.Value),
			zap.Float64("target", summary.Target),
			zap.Float64("achieved", summary.Achieved),
			zap.Int("iterations", summary.Iterations),
			zap.Bool("converged", summary.Converged),
		)
	}

	return &Result{Summaries: summaries}, nil
}

func (r *Runner) collectTargets() ([]scenarioTarget, error) {
	var targets []scenarioTarget

	for i := range r.conf.Scenarios {
		scenario := &r.conf.Scenarios[i]
		if !scenario.Active || scenario.Target == nil {
			continue
		}
		if err := scenario.Target.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		original, err := getField(adapters.ScenarioToParameters(*scenario), scenario.Target.Field)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		targets = append(targets, scenarioTarget{
			scenarioIndex: i,
			scenarioName:  scenario.Name,
			target:        scenario.Target,
			original:      original,
		})
	}

	return targets, nil
}

func (r *Runner) solve(t scenarioTarget) (optimization.Summary, error) {
	cfg := t.target
	goal := cfg.FinalBalance

	lowerEval, err := r.evaluate(t, *cfg.Min)
	if err != nil {
		return optimization.Summary{}, err
	}
	upperEval, err := r.evaluate(t, *cfg.Max)
	if err != nil {
		return optimization.Summary{}, err
	}

	summary := optimization.Summary{
		Scenario:        t.scenarioName,
		Field:           cfg.Field,
		Original:        t.original,
		OriginalDisplay: formatFieldDisplay(cfg.Field, t.original),
		Target:          goal,
	}

	best := lowerEval
	if math.Abs(upperEval.balance-goal) < math.Abs(lowerEval.balance-goal) {
		best = upperEval
	}

	switch {
	case math.Abs(best.balance-goal) <= cfg.Tolerance:
		summary.Converged = true
	case !brackets(lowerEval.balance, upperEval.balance, goal):
		summary.Notes = append(summary.Notes, fmt.Sprintf(
			"final balance %s is not reachable with %s between %s and %s; kept the closer bound",
			formatutil.Currency(goal),
			cfg.Field,
			formatFieldDisplay(cfg.Field, *cfg.Min),
			formatFieldDisplay(cfg.Field, *cfg.Max),
		))
	default:
		best, summary.Iterations, summary.Converged, err = r.bisect(t, lowerEval, upperEval)
		if err != nil {
			return optimization.Summary{}, err
		}
		if !summary.Converged {
			summary.Notes = append(summary.Notes, fmt.Sprintf(
				"stopped after %d iterations without reaching the tolerance of %s",
				summary.Iterations, formatutil.Currency(cfg.Tolerance),
			))
		}
	}

	if err := r.setField(t, best.value); err != nil {
		return optimization.Summary{}, err
	}
	summary.Value = best.value
	summary.ValueDisplay = formatFieldDisplay(cfg.Field, best.value)
	summary.Achieved = best.balance
	summary.AchievedDisplay = formatutil.Currency(best.balance)
	return summary, nil
}

// bisect narrows [lower, upper] while the goal stays between the two
// endpoint balances. The final balance is monotone in every supported field.
func (r *Runner) bisect(t scenarioTarget, lower, upper evaluation) (evaluation, int, bool, error) {
	cfg := t.target
	goal := cfg.FinalBalance
	lowerBelow := lower.balance < goal

	best := lower
	if math.Abs(upper.balance-goal) < math.Abs(lower.balance-goal) {
		best = upper
	}

	iterations := 0
	for iterations < cfg.MaxIterations {
		mid := lower.value + (upper.value-lower.value)/2
		if mid == lower.value || mid == upper.value {
			break
		}
		evalMid, err := r.evaluate(t, mid)
		if err != nil {
			return evaluation{}, iterations, false, err
		}
		iterations++

		if math.Abs(evalMid.balance-goal) < math.Abs(best.balance-goal) {
			best = evalMid
		}
		if math.Abs(evalMid.balance-goal) <= cfg.Tolerance {
			return evalMid, iterations, true, nil
		}
		if (evalMid.balance < goal) == lowerBelow {
			lower = evalMid
		} else {
			upper = evalMid
		}
	}

	return best, iterations, math.Abs(best.balance-goal) <= cfg.Tolerance, nil
}

func (r *Runner) evaluate(t scenarioTarget, value float64) (evaluation, error) {
	scenario := r.conf.Scenarios[t.scenarioIndex]
	params := adapters.ScenarioToParameters(scenario)
	if err := setParameter(&params, t.target.Field, value); err != nil {
		return evaluation{}, err
	}
	result, err := forecast.Compute(scenario.Name, params, r.conf.Limits)
	if err != nil {
		return evaluation{}, fmt.Errorf("optimizer evaluation failed: %w", err)
	}
	return evaluation{value: value, balance: result.FinalBalance()}, nil
}

func (r *Runner) setField(t scenarioTarget, value float64) error {
	scenario := &r.conf.Scenarios[t.scenarioIndex]
	params := adapters.ScenarioToParameters(*scenario)
	if err := setParameter(&params, t.target.Field, value); err != nil {
		return err
	}
	adapters.ApplyParameters(scenario, params)
	return nil
}

func brackets(a, b, goal float64) bool {
	return (a <= goal && goal <= b) || (b <= goal && goal <= a)
}

func getField(params finance.Parameters, field string) (float64, error) {
	switch field {
	case config.TargetFieldPrincipal:
		return params.Principal, nil
	case config.TargetFieldAnnualYieldRate:
		return params.AnnualYieldRate, nil
	case config.TargetFieldAdminFeeRate:
		return params.AdminFeeRate, nil
	case config.TargetFieldPerformanceFeeRate:
		return params.PerformanceFeeRate, nil
	case config.TargetFieldIncomeTaxRate:
		return params.IncomeTaxRate, nil
	default:
		return 0, fmt.Errorf("unsupported target field %q", field)
	}
}

func setParameter(params *finance.Parameters, field string, value float64) error {
	switch field {
	case config.TargetFieldPrincipal:
		params.Principal = value
	case config.TargetFieldAnnualYieldRate:
		params.AnnualYieldRate = value
	case config.TargetFieldAdminFeeRate:
		params.AdminFeeRate = value
	case config.TargetFieldPerformanceFeeRate:
		params.PerformanceFeeRate = value
	case config.TargetFieldIncomeTaxRate:
		params.IncomeTaxRate = value
	default:
		return fmt.Errorf("unsupported target field %q", field)
	}
	return nil
}

func formatFieldDisplay(field string, value float64) string {
	if field == config.TargetFieldPrincipal {
		return formatutil.Currency(value)
	}
	return fmt.Sprintf("%.2f%%", value)
}
