// Package adapters provides adapter implementations between different package interfaces.
package adapters

import (
	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/pkg/finance"
)

// ScenarioToParameters converts a configured scenario to engine parameters.
func ScenarioToParameters(scenario config.Scenario) finance.Parameters {
	return finance.Parameters{
		Principal:          scenario.Principal,
		AnnualYieldRate:    scenario.AnnualYieldRate,
		AdminFeeRate:       scenario.AdminFeeRate,
		PerformanceFeeRate: scenario.PerformanceFeeRate,
		IncomeTaxRate:      scenario.IncomeTaxRate,
		Periods:            scenario.Periods,
	}
}

// ApplyParameters copies engine parameters onto a scenario, keeping its
// name, active flag and target.
func ApplyParameters(scenario *config.Scenario, params finance.Parameters) {
	if scenario == nil {
		return
	}
	scenario.Principal = params.Principal
	scenario.AnnualYieldRate = params.AnnualYieldRate
	scenario.AdminFeeRate = params.AdminFeeRate
	scenario.PerformanceFeeRate = params.PerformanceFeeRate
	scenario.IncomeTaxRate = params.IncomeTaxRate
	scenario.Periods = params.Periods
}

// ScenariosToParameters converts scenario slices to parameter slices
func ScenariosToParameters(scenarios []config.Scenario) []finance.Parameters {
	if scenarios == nil {
		return nil
	}

	params := make([]finance.Parameters, 0, len(scenarios))
	for _, scenario := range scenarios {
		params = append(params, ScenarioToParameters(scenario))
	}
	return params
}
