// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/taxsim/internal/dashboard"
	"github.com/iwvelando/taxsim/internal/forecast"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/iwvelando/taxsim/pkg/finance"
	formatutil "github.com/iwvelando/taxsim/pkg/format"
	"github.com/iwvelando/taxsim/pkg/mathutil"
	"github.com/iwvelando/taxsim/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, p: message.NewPrinter(language.BrazilianPortuguese)}
}

// printer writes locale-aware text and remembers the first write error.
type printer struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = p.p.Fprintf(p.w, format, args...)
}

// money renders an amount the way every table does.
func money(amount float64) string {
	return formatutil.Currency(amount)
}

// number renders identifiers, months and counts without digit grouping.
func number(n int) string {
	return strconv.Itoa(n)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []forecast.Forecast) error {
	out := newPrinter(w)
	for i, result := range results {
		params := result.Parameters
		out.printf("--- Results for scenario %s ---\n", result.Name)
		out.printf("Principal %s | yield %.2f%% | admin fee %.2f%% | performance fee %.2f%% | income tax %.2f%%\n",
			money(params.Principal), params.AnnualYieldRate, params.AdminFeeRate, params.PerformanceFeeRate, params.IncomeTaxRate)
		out.printf("Year | Opening | Gain | Admin fee | Performance fee | Income tax | Balance\n")
		out.printf("____ | _______ | ____ | _________ | _______________ | __________ | _______\n")
		for _, period := range result.Periods {
			out.printf("%s | %s | %s | %s | %s | %s | %s\n",
				number(period.Period),
				money(period.Opening),
				money(period.Gain),
				money(period.AdminFee),
				money(period.PerformanceFee),
				money(period.IncomeTax),
				money(period.Balance),
			)
		}
		writeSummary(out, result.Summary)
		if result.Optimization != nil {
			writeOptimization(out, *result.Optimization)
		}
		if i < len(results)-1 {
			out.printf("\n")
		}
	}
	return out.err
}

func writeSummary(out *printer, summary finance.Summary) {
	out.printf("Final balance: %s (net return %.2f%%)\n", money(summary.FinalBalance), mathutil.Round(summary.NetReturnPercent))
	out.printf("Gross gain: %s | Deductions: %s (admin %s, performance %s, income tax %s)\n",
		money(summary.TotalGain),
		money(summary.TotalDeductions()),
		money(summary.TotalAdminFees),
		money(summary.TotalPerformanceFees),
		money(summary.TotalIncomeTax),
	)
}

func writeOptimization(out *printer, summary optimization.Summary) {
	status := "converged"
	if !summary.Converged {
		status = "not converged"
	}
	out.printf("Goal seek: %s %s -> %s for final balance %s (achieved %s, %d iterations, %s)\n",
		summary.Field,
		summary.OriginalDisplay,
		summary.ValueDisplay,
		money(summary.Target),
		summary.AchievedDisplay,
		summary.Iterations,
		status,
	)
	for _, note := range summary.Notes {
		out.printf("  note: %s\n", note)
	}
}

// CsvFormat outputs in comma-separated value format, one row per period
// and one balance column per scenario.
func CsvFormat(w io.Writer, results []forecast.Forecast) error {
	writer := csv.NewWriter(w)

	header := []string{"period"}
	maxPeriods := 0
	for _, result := range results {
		header = append(header, fmt.Sprintf("balance (%s)", result.Name))
		if len(result.Points) > maxPeriods {
			maxPeriods = len(result.Points)
		}
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i := 0; i < maxPeriods; i++ {
		record := []string{strconv.Itoa(i + 1)}
		for _, result := range results {
			value := ""
			if i < len(result.Points) {
				value = mathutil.FixedString(result.Points[i].Balance)
			}
			record = append(record, value)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// DetailedCsv outputs the full breakdown of one projection.
func DetailedCsv(w io.Writer, periods []finance.Period) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"period", "opening", "grown", "gain", "adminFee", "performanceFee", "incomeTax", "balance"}); err != nil {
		return err
	}
	for _, period := range periods {
		record := []string{
			strconv.Itoa(period.Period),
			mathutil.FixedString(period.Opening),
			mathutil.FixedString(period.Grown),
			mathutil.FixedString(period.Gain),
			mathutil.FixedString(period.AdminFee),
			mathutil.FixedString(period.PerformanceFee),
			mathutil.FixedString(period.IncomeTax),
			mathutil.FixedString(period.Balance),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// CsvString renders the scenarios' balances as CSV text.
func CsvString(results []forecast.Forecast) (string, error) {
	var builder strings.Builder
	if err := CsvFormat(&builder, results); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// FormulaList outputs a table of formulas.
func FormulaList(w io.Writer, formulas []formula.Formula) error {
	out := newPrinter(w)
	if len(formulas) == 0 {
		out.printf("No formulas.\n")
		return out.err
	}
	out.printf("ID | Name | Investment | Amount | Factor | Taxes\n")
	out.printf("__ | ____ | __________ | ______ | ______ | _____\n")
	for _, f := range formulas {
		investment, amount, factor := "-", "-", "-"
		if f.Investment != nil {
			investment = string(f.Investment.Type)
			amount = money(f.Investment.Amount)
			factor = strconv.FormatFloat(f.Investment.Factor, 'f', -1, 64)
		}
		out.printf("%s | %s | %s | %s | %s | %s\n", number(f.ID), f.Name, investment, amount, factor, number(len(f.Taxes)))
	}
	return out.err
}

// FormulaDetail outputs one formula with its tax rules.
func FormulaDetail(w io.Writer, f formula.Formula) error {
	out := newPrinter(w)
	out.printf("--- Formula %s: %s ---\n", number(f.ID), f.Name)
	if f.Investment != nil {
		out.printf("Investment #%s: %s, %s, factor %s\n", number(f.Investment.ID), f.Investment.Type, money(f.Investment.Amount),
			strconv.FormatFloat(f.Investment.Factor, 'f', -1, 64))
	} else {
		out.printf("Investment: none\n")
	}
	if len(f.Taxes) == 0 {
		out.printf("Taxes: none\n")
		return out.err
	}
	out.printf("Tax | Type | Factor | Applies | Months\n")
	out.printf("___ | ____ | ______ | _______ | ______\n")
	for _, tax := range f.Taxes {
		factor := strconv.FormatFloat(tax.Factor, 'f', -1, 64)
		if tax.Type == formula.TaxPercent {
			factor += "%"
		}
		out.printf("%s | %s | %s | %s | %s\n", number(tax.ID), tax.Type, factor, tax.Applies, tax.Window())
	}
	return out.err
}

// ProjectionPretty outputs a server-side formula projection.
func ProjectionPretty(w io.Writer, p formula.Projection) error {
	out := newPrinter(w)
	out.printf("--- Projection for formula %s (#%s), initial %s ---\n", p.FormulaName, number(p.FormulaID), money(p.InitialAmount))
	out.printf("Month | Before tax | After tax | Tax\n")
	out.printf("_____ | __________ | _________ | ___\n")
	for _, row := range p.Rows {
		out.printf("%s | %s | %s | %s\n", number(row.Month), money(row.BeforeTax), money(row.AfterTax), money(row.Tax()))
	}
	return out.err
}

// DashboardPretty outputs the merged after-tax values of every formula.
func DashboardPretty(w io.Writer, result dashboard.Result) error {
	out := newPrinter(w)
	if len(result.Series) == 0 {
		out.printf("No formulas.\n")
		return out.err
	}
	series := append([]string(nil), result.Series...)
	sort.Strings(series)

	out.printf("Month | %s\n", strings.Join(series, " | "))
	for _, row := range result.Rows {
		cells := make([]string, len(series))
		for i, name := range series {
			if value, ok := row.Values[name]; ok {
				cells[i] = money(value)
			} else {
				cells[i] = "-"
			}
		}
		out.printf("%s | %s\n", number(row.Month), strings.Join(cells, " | "))
	}
	return out.err
}
