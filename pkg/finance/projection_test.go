package finance

import (
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/taxsim/pkg/mathutil"
)

func scenarioA(periods int) Parameters {
	return Parameters{
		Principal:          10000,
		AnnualYieldRate:    10,
		AdminFeeRate:       1,
		PerformanceFeeRate: 20,
		IncomeTaxRate:      15,
		Periods:            periods,
	}
}

func TestProjectZeroPeriods(t *testing.T) {
	for _, periods := range []int{0, -1, -100} {
		p := scenarioA(periods)
		points := Project(p)
		if points == nil {
			t.Fatalf("Project(periods=%d) returned nil, expected empty slice", periods)
		}
		if len(points) != 0 {
			t.Fatalf("Project(periods=%d) returned %d points, expected 0", periods, len(points))
		}
	}
}

func TestProjectAllZeroRatesKeepsPrincipal(t *testing.T) {
	p := Parameters{Principal: 12345.67, Periods: 24}
	for _, point := range Project(p) {
		if point.Balance != p.Principal {
			t.Fatalf("period %d balance = %v, expected exactly %v", point.Period, point.Balance, p.Principal)
		}
	}
}

func TestProjectRoundsStoredBinaryValue(t *testing.T) {
	tests := []struct {
		principal float64
		expected  string
	}{
		{1.005, "1.00"},
		{2.675, "2.67"},
		{0.125, "0.13"},
	}

	for _, tt := range tests {
		points := Project(Parameters{Principal: tt.principal, Periods: 1})
		if len(points) != 1 {
			t.Fatalf("expected 1 point, got %d", len(points))
		}
		if got := mathutil.FixedString(points[0].Balance); got != tt.expected {
			t.Errorf("principal %v balance = %s, expected %s", tt.principal, got, tt.expected)
		}
	}
}

func TestProjectStrictlyIncreasingWithoutFees(t *testing.T) {
	p := Parameters{Principal: 500, AnnualYieldRate: 0.5, Periods: 120}
	previous := p.Principal
	for _, point := range Project(p) {
		if point.Balance <= previous {
			t.Fatalf("period %d balance %v did not increase from %v", point.Period, point.Balance, previous)
		}
		previous = point.Balance
	}
}

func TestProjectScenarioA(t *testing.T) {
	periods := ProjectDetailed(scenarioA(1))
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}

	got := periods[0]
	checks := []struct {
		name     string
		actual   float64
		expected float64
	}{
		{"grown", got.Grown, 11000},
		{"gain", got.Gain, 1000},
		{"adminFee", got.AdminFee, 110},
		{"performanceFee", got.PerformanceFee, 200},
		{"incomeTax", got.IncomeTax, 150},
		{"balance", got.Balance, 10540},
	}
	for _, check := range checks {
		if math.Abs(check.actual-check.expected) > 1e-9 {
			t.Errorf("%s = %v, expected %v", check.name, check.actual, check.expected)
		}
	}
	if display := mathutil.FixedString(got.Balance); display != "10540.00" {
		t.Errorf("displayed balance = %s, expected 10540.00", display)
	}
}

func TestProjectScenarioB(t *testing.T) {
	points := Project(scenarioA(5))
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}

	expected := []string{"10540.00", "11109.16", "11709.05", "12341.34", "13007.78"}
	for i, point := range points {
		if point.Period != i+1 {
			t.Errorf("point %d has period %d, expected %d", i, point.Period, i+1)
		}
		if got := mathutil.FixedString(point.Balance); got != expected[i] {
			t.Errorf("period %d balance = %s, expected %s", point.Period, got, expected[i])
		}
		if i > 0 && point.Balance <= points[i-1].Balance {
			t.Errorf("period %d balance %v not greater than period %d balance %v",
				point.Period, point.Balance, points[i-1].Period, points[i-1].Balance)
		}
	}

	// Period 2 compounds from the first period's balance.
	second := ProjectDetailed(scenarioA(2))[1]
	if math.Abs(second.Opening-10540) > 1e-9 {
		t.Errorf("period 2 opening = %v, expected 10540", second.Opening)
	}
}

func TestProjectNegativeGain(t *testing.T) {
	p := scenarioA(1)
	p.AnnualYieldRate = -5

	period := ProjectDetailed(p)[0]
	if math.Abs(period.Grown-9500) > 1e-9 {
		t.Errorf("grown = %v, expected 9500", period.Grown)
	}
	if period.Gain >= 0 {
		t.Errorf("gain = %v, expected negative", period.Gain)
	}
	if period.PerformanceFee != 0 || period.IncomeTax != 0 {
		t.Errorf("expected no performance fee or income tax on a loss, got %v and %v",
			period.PerformanceFee, period.IncomeTax)
	}
	if math.Abs(period.AdminFee-95) > 1e-9 {
		t.Errorf("adminFee = %v, expected 95", period.AdminFee)
	}
	if got := mathutil.FixedString(period.Balance); got != "9405.00" {
		t.Errorf("balance = %s, expected 9405.00", got)
	}
}

func TestProjectZeroGainChargesOnlyAdminFee(t *testing.T) {
	p := Parameters{Principal: 1000, AdminFeeRate: 2, PerformanceFeeRate: 50, IncomeTaxRate: 50, Periods: 1}
	period := ProjectDetailed(p)[0]
	if period.PerformanceFee != 0 || period.IncomeTax != 0 {
		t.Fatalf("zero gain must not incur performance fee or tax, got %+v", period)
	}
	if math.Abs(period.Balance-980) > 1e-9 {
		t.Fatalf("balance = %v, expected 980", period.Balance)
	}
}

func TestProjectDeterministic(t *testing.T) {
	p := Parameters{Principal: 7777.77, AnnualYieldRate: 7.3, AdminFeeRate: 1.7, PerformanceFeeRate: 12.5, IncomeTaxRate: 22.5, Periods: 300}
	first := Project(p)
	second := Project(p)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different sequences")
	}
	for i := range first {
		if math.Float64bits(first[i].Balance) != math.Float64bits(second[i].Balance) {
			t.Fatalf("period %d differs at bit level", first[i].Period)
		}
	}
}

func TestProjectLengthMatchesPeriods(t *testing.T) {
	for _, periods := range []int{1, 2, 5, 50, 600} {
		if got := len(Project(scenarioA(periods))); got != periods {
			t.Errorf("len(Project(periods=%d)) = %d", periods, got)
		}
	}
}

func TestProjectAcceptsNegativePrincipal(t *testing.T) {
	p := Parameters{Principal: -1000, AnnualYieldRate: 10, PerformanceFeeRate: 20, Periods: 1}
	period := ProjectDetailed(p)[0]
	// A negative base grows into a negative gain, so no performance fee applies.
	if period.PerformanceFee != 0 {
		t.Fatalf("expected no performance fee, got %v", period.PerformanceFee)
	}
	if math.Abs(period.Balance+1100) > 1e-9 {
		t.Fatalf("balance = %v, expected -1100", period.Balance)
	}
}

func TestFinalBalance(t *testing.T) {
	if got := FinalBalance(scenarioA(0)); got != 10000 {
		t.Errorf("FinalBalance with no periods = %v, expected principal", got)
	}
	if got := mathutil.FixedString(FinalBalance(scenarioA(5))); got != "13007.78" {
		t.Errorf("FinalBalance = %s, expected 13007.78", got)
	}
}

func TestSummarize(t *testing.T) {
	p := scenarioA(1)
	summary := Summarize(p.Principal, ProjectDetailed(p))

	if math.Abs(summary.FinalBalance-10540) > 1e-9 {
		t.Errorf("FinalBalance = %v, expected 10540", summary.FinalBalance)
	}
	if math.Abs(summary.TotalDeductions()-460) > 1e-9 {
		t.Errorf("TotalDeductions = %v, expected 460", summary.TotalDeductions())
	}
	if math.Abs(summary.NetReturnPercent-5.4) > 1e-9 {
		t.Errorf("NetReturnPercent = %v, expected 5.4", summary.NetReturnPercent)
	}

	empty := Summarize(250, nil)
	if empty.FinalBalance != 250 || empty.NetReturnPercent != 0 {
		t.Errorf("empty summary = %+v, expected principal and zero return", empty)
	}
}

func BenchmarkProject(b *testing.B) {
	p := scenarioA(600)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Project(p)
	}
}

func BenchmarkProjectDetailed(b *testing.B) {
	p := scenarioA(600)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ProjectDetailed(p)
	}
}
