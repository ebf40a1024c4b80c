// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import "fmt"

// ScenarioInfo represents scenario configuration information
type ScenarioInfo struct {
	Name               string
	Active             bool
	AnnualYieldRate    float64
	AdminFeeRate       float64
	PerformanceFeeRate float64
	IncomeTaxRate      float64
	Periods            int
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration inspects scenarios for settings that are legal but
// probably unintended and returns a warning for each.
func (p *Processor) ValidateConfiguration(scenarios []ScenarioInfo) []string {
	var warnings []string

	seen := make(map[string]bool, len(scenarios))
	active := 0
	for _, scenario := range scenarios {
		if seen[scenario.Name] {
			warnings = append(warnings, fmt.Sprintf("Scenario name '%s' is used more than once", scenario.Name))
		}
		seen[scenario.Name] = true

		if !scenario.Active {
			continue // Skip inactive scenarios
		}
		active++

		if scenario.Periods <= 0 {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' has %d periods and will produce an empty projection", scenario.Name, scenario.Periods))
		}
		if scenario.AnnualYieldRate < 0 {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' has a negative yield (%.2f%%); performance fee and income tax will never apply", scenario.Name, scenario.AnnualYieldRate))
		}
		if scenario.AdminFeeRate > 0 && scenario.AdminFeeRate >= scenario.AnnualYieldRate {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' admin fee (%.2f%%) is not below its yield (%.2f%%); the balance cannot grow", scenario.Name, scenario.AdminFeeRate, scenario.AnnualYieldRate))
		}
		if scenario.PerformanceFeeRate+scenario.IncomeTaxRate >= 100 {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' performance fee and income tax together take %.2f%% of every gain", scenario.Name, scenario.PerformanceFeeRate+scenario.IncomeTaxRate))
		}
	}

	if len(scenarios) > 0 && active == 0 {
		warnings = append(warnings, "No scenario is active; nothing will be projected")
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
