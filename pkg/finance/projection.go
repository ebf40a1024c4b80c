// Package finance implements the investment projection engine: a pure,
// period-by-period compounding of yield net of administrative fees,
// performance fees and income tax.
package finance

import (
	"github.com/iwvelando/taxsim/pkg/mathutil"
)

// Parameters holds the inputs of a projection. Every rate is a percentage on
// a 0-100 scale.
type Parameters struct {
	Principal          float64 `json:"principal" yaml:"principal"`
	AnnualYieldRate    float64 `json:"annualYieldRate" yaml:"annualYieldRate"`
	AdminFeeRate       float64 `json:"adminFeeRate" yaml:"adminFeeRate"`
	PerformanceFeeRate float64 `json:"performanceFeeRate" yaml:"performanceFeeRate"`
	IncomeTaxRate      float64 `json:"incomeTaxRate" yaml:"incomeTaxRate"`
	Periods            int     `json:"periods" yaml:"periods"`
}

// Point is the balance at the end of one period.
type Point struct {
	Period  int     `json:"period"`
	Balance float64 `json:"balance"`
}

// Period is the full breakdown of one simulated period.
type Period struct {
	Period         int     `json:"period"`
	Opening        float64 `json:"opening"`
	Grown          float64 `json:"grown"`
	Gain           float64 `json:"gain"`
	AdminFee       float64 `json:"adminFee"`
	PerformanceFee float64 `json:"performanceFee"`
	IncomeTax      float64 `json:"incomeTax"`
	Balance        float64 `json:"balance"`
}

// Project returns one Point per period, in ascending order. The principal
// itself is not included. Periods <= 0 yields an empty sequence.
func Project(p Parameters) []Point {
	periods := ProjectDetailed(p)
	points := make([]Point, len(periods))
	for i, period := range periods {
		points[i] = Point{Period: period.Period, Balance: period.Balance}
	}
	return points
}

// ProjectDetailed is Project with the per-period fee and tax breakdown.
func ProjectDetailed(p Parameters) []Period {
	if p.Periods <= 0 {
		return []Period{}
	}

	yield := mathutil.PercentToDecimal(p.AnnualYieldRate)
	admin := mathutil.PercentToDecimal(p.AdminFeeRate)
	performance := mathutil.PercentToDecimal(p.PerformanceFeeRate)
	tax := mathutil.PercentToDecimal(p.IncomeTaxRate)

	result := make([]Period, 0, p.Periods)
	balance := p.Principal
	for period := 1; period <= p.Periods; period++ {
		// Explicit float64 conversions keep the compiler from fusing
		// multiply-add, so results are identical on every platform.
		grown := float64(balance * (1 + yield))
		gain := grown - balance

		adminFee := float64(grown * admin)
		performanceFee := 0.0
		incomeTax := 0.0
		if gain > 0 {
			performanceFee = float64(gain * performance)
			incomeTax = float64(gain * tax)
		}

		// Balances are carried unrounded; only display values are rounded.
		next := grown - adminFee - performanceFee - incomeTax
		result = append(result, Period{
			Period:         period,
			Opening:        balance,
			Grown:          grown,
			Gain:           gain,
			AdminFee:       adminFee,
			PerformanceFee: performanceFee,
			IncomeTax:      incomeTax,
			Balance:        next,
		})
		balance = next
	}

	return result
}

// FinalBalance returns the balance after the last period, or the principal
// when there are no periods.
func FinalBalance(p Parameters) float64 {
	periods := ProjectDetailed(p)
	if len(periods) == 0 {
		return p.Principal
	}
	return periods[len(periods)-1].Balance
}
