package adapters

import (
	"testing"

	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/pkg/finance"
)

func TestScenarioToParameters(t *testing.T) {
	scenario := config.Scenario{
		Name:               "Test Scenario",
		Active:             true,
		Principal:          10000,
		AnnualYieldRate:    10,
		AdminFeeRate:       1,
		PerformanceFeeRate: 20,
		IncomeTaxRate:      15,
		Periods:            5,
	}

	params := ScenarioToParameters(scenario)
	expected := finance.Parameters{
		Principal:          10000,
		AnnualYieldRate:    10,
		AdminFeeRate:       1,
		PerformanceFeeRate: 20,
		IncomeTaxRate:      15,
		Periods:            5,
	}
	if params != expected {
		t.Errorf("ScenarioToParameters() = %+v, expected %+v", params, expected)
	}
}

func TestApplyParameters(t *testing.T) {
	target := &config.TargetConfig{FinalBalance: 20000}
	scenario := config.Scenario{Name: "Keep", Active: true, Principal: 1, Target: target}

	ApplyParameters(&scenario, finance.Parameters{Principal: 5000, AnnualYieldRate: 8, Periods: 3})

	if scenario.Name != "Keep" || !scenario.Active || scenario.Target != target {
		t.Errorf("ApplyParameters() changed identity fields: %+v", scenario)
	}
	if scenario.Principal != 5000 || scenario.AnnualYieldRate != 8 || scenario.Periods != 3 {
		t.Errorf("ApplyParameters() did not copy parameters: %+v", scenario)
	}

	// Nil scenario is a no-op
	ApplyParameters(nil, finance.Parameters{})
}

func TestScenariosToParameters(t *testing.T) {
	if got := ScenariosToParameters(nil); got != nil {
		t.Errorf("ScenariosToParameters(nil) = %v, expected nil", got)
	}

	scenarios := []config.Scenario{
		{Name: "A", Principal: 100, Periods: 1},
		{Name: "B", Principal: 200, Periods: 2},
	}
	params := ScenariosToParameters(scenarios)
	if len(params) != 2 {
		t.Fatalf("ScenariosToParameters() length = %d, expected 2", len(params))
	}
	if params[1].Principal != 200 || params[1].Periods != 2 {
		t.Errorf("ScenariosToParameters()[1] = %+v", params[1])
	}
}
