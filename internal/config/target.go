package config

import (
	"fmt"
	"strings"
)

// Fields a goal seek may adjust.
const (
	TargetFieldPrincipal          = "principal"
	TargetFieldAnnualYieldRate    = "annualYieldRate"
	TargetFieldAdminFeeRate       = "adminFeeRate"
	TargetFieldPerformanceFeeRate = "performanceFeeRate"
	TargetFieldIncomeTaxRate      = "incomeTaxRate"

	defaultTargetTolerance     = 0.01
	defaultTargetMaxIterations = 100
)

// TargetConfig asks the optimizer to adjust one scenario field until the
// projection's final balance reaches FinalBalance.
type TargetConfig struct {
	FinalBalance  float64  `yaml:"finalBalance" mapstructure:"finalBalance"`
	Field         string   `yaml:"field,omitempty" mapstructure:"field"`
	Min           *float64 `yaml:"min,omitempty" mapstructure:"min"`
	Max           *float64 `yaml:"max,omitempty" mapstructure:"max"`
	Tolerance     float64  `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int      `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalTargetField returns the canonical identifier for a target field.
func CanonicalTargetField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return TargetFieldPrincipal
	}
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(trimmed)) {
	case "principal", "amount":
		return TargetFieldPrincipal
	case "annualyieldrate", "yield":
		return TargetFieldAnnualYieldRate
	case "adminfeerate", "adminfee":
		return TargetFieldAdminFeeRate
	case "performancefeerate", "performancefee":
		return TargetFieldPerformanceFeeRate
	case "incometaxrate", "incometax":
		return TargetFieldIncomeTaxRate
	default:
		return trimmed
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (t *TargetConfig) Normalize() {
	if t == nil {
		return
	}
	t.Field = CanonicalTargetField(t.Field)
	if t.Tolerance <= 0 {
		t.Tolerance = defaultTargetTolerance
	}
	if t.MaxIterations <= 0 {
		t.MaxIterations = defaultTargetMaxIterations
	}
}

// Validate returns an error when the target configuration is unsupported.
func (t *TargetConfig) Validate() error {
	if t == nil {
		return fmt.Errorf("target configuration cannot be nil")
	}

	t.Normalize()

	switch t.Field {
	case TargetFieldPrincipal, TargetFieldAnnualYieldRate, TargetFieldAdminFeeRate,
		TargetFieldPerformanceFeeRate, TargetFieldIncomeTaxRate:
	default:
		return fmt.Errorf("target field %q is not supported", t.Field)
	}
	if t.Min == nil {
		return fmt.Errorf("target requires a minimum bound")
	}
	if t.Max == nil {
		return fmt.Errorf("target requires a maximum bound")
	}
	if *t.Min >= *t.Max {
		return fmt.Errorf("target minimum %.2f must be less than maximum %.2f", *t.Min, *t.Max)
	}
	if t.Field == TargetFieldPrincipal && *t.Min <= 0 {
		return fmt.Errorf("target minimum principal %.2f must be greater than zero", *t.Min)
	}
	return nil
}
