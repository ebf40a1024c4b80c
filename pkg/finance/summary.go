package finance

import (
	"github.com/iwvelando/taxsim/pkg/mathutil"
)

// Summary aggregates a detailed projection.
type Summary struct {
	Principal            float64 `json:"principal"`
	FinalBalance         float64 `json:"finalBalance"`
	TotalGain            float64 `json:"totalGain"`
	TotalAdminFees       float64 `json:"totalAdminFees"`
	TotalPerformanceFees float64 `json:"totalPerformanceFees"`
	TotalIncomeTax       float64 `json:"totalIncomeTax"`
	NetReturnPercent     float64 `json:"netReturnPercent"`
}

// TotalDeductions is the sum of every fee and tax charged.
func (s Summary) TotalDeductions() float64 {
	return s.TotalAdminFees + s.TotalPerformanceFees + s.TotalIncomeTax
}

// Summarize totals the gross gain and every deduction of a projection.
func Summarize(principal float64, periods []Period) Summary {
	summary := Summary{Principal: principal, FinalBalance: principal}
	for _, period := range periods {
		summary.TotalGain += period.Gain
		summary.TotalAdminFees += period.AdminFee
		summary.TotalPerformanceFees += period.PerformanceFee
		summary.TotalIncomeTax += period.IncomeTax
		summary.FinalBalance = period.Balance
	}
	summary.NetReturnPercent = mathutil.CalculatePercentage(summary.FinalBalance-principal, principal)
	return summary
}
