// Package validation provides the checks run before a projection is computed.
// The projection engine itself accepts any input; callers that face users
// validate with this package first.
package validation

import (
	"fmt"

	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/finance"
	"github.com/iwvelando/taxsim/pkg/mathutil"
	"go.uber.org/multierr"
)

// Limits bounds the accepted parameter ranges.
type Limits struct {
	MaxPrincipal float64 `yaml:"maxPrincipal" mapstructure:"maxPrincipal"`
	MaxPeriods   int     `yaml:"maxPeriods" mapstructure:"maxPeriods"`
	MaxRate      float64 `yaml:"maxRate" mapstructure:"maxRate"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxPrincipal: constants.DefaultMaxPrincipal,
		MaxPeriods:   constants.DefaultMaxPeriods,
		MaxRate:      constants.DefaultMaxRate,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	defaults := DefaultLimits()
	if l.MaxPrincipal <= 0 {
		l.MaxPrincipal = defaults.MaxPrincipal
	}
	if l.MaxPeriods <= 0 {
		l.MaxPeriods = defaults.MaxPeriods
	}
	if l.MaxRate <= 0 {
		l.MaxRate = defaults.MaxRate
	}
	return l
}

// ValidateParameters reports every problem with p at once.
func ValidateParameters(p finance.Parameters, limits Limits) error {
	limits = limits.WithDefaults()

	var err error
	if !mathutil.IsFinite(p.Principal) {
		err = multierr.Append(err, fmt.Errorf("principal: value is not a finite number"))
	} else if p.Principal <= 0 {
		err = multierr.Append(err, fmt.Errorf("principal: must be greater than zero, got %g", p.Principal))
	} else if p.Principal > limits.MaxPrincipal {
		err = multierr.Append(err, fmt.Errorf("principal: must not exceed %g, got %g", limits.MaxPrincipal, p.Principal))
	}

	if p.Periods < 1 || p.Periods > limits.MaxPeriods {
		err = multierr.Append(err, fmt.Errorf("periods: must be in range [1; %d], got %d", limits.MaxPeriods, p.Periods))
	}

	rates := []struct {
		name  string
		value float64
	}{
		{"annualYieldRate", p.AnnualYieldRate},
		{"adminFeeRate", p.AdminFeeRate},
		{"performanceFeeRate", p.PerformanceFeeRate},
		{"incomeTaxRate", p.IncomeTaxRate},
	}
	for _, rate := range rates {
		err = multierr.Append(err, ValidateRate(rate.name, rate.value, limits.MaxRate))
	}

	return err
}

// ValidateRate checks that a percentage is finite and within [-max, max].
func ValidateRate(name string, value, max float64) error {
	if !mathutil.IsFinite(value) {
		return fmt.Errorf("%s: value is not a finite number", name)
	}
	if value < -max || value > max {
		return fmt.Errorf("%s: must be in range [%g; %g], got %g", name, -max, max, value)
	}
	return nil
}

// ValidateMonthRange checks a formula projection month range.
func ValidateMonthRange(first, last int) error {
	if first < 1 {
		return fmt.Errorf("firstMonth: must be at least 1, got %d", first)
	}
	if last < first {
		return fmt.Errorf("lastMonth: must not be before firstMonth (%d < %d)", last, first)
	}
	return nil
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}
