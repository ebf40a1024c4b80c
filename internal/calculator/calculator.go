// Package calculator holds the state of the interactive calculator. Input
// changes are coalesced by a Debouncer and each recomputation publishes a
// fresh projection to subscribers.
package calculator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/finance"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.uber.org/zap"
)

// Calculator fields accepted by Set.
const (
	FieldPrincipal          = "principal"
	FieldAnnualYieldRate    = "annualYieldRate"
	FieldAdminFeeRate       = "adminFeeRate"
	FieldPerformanceFeeRate = "performanceFeeRate"
	FieldIncomeTaxRate      = "incomeTaxRate"
	FieldPeriods            = "periods"
)

// Fields lists every settable field.
func Fields() []string {
	return []string{FieldPrincipal, FieldAnnualYieldRate, FieldAdminFeeRate, FieldPerformanceFeeRate, FieldIncomeTaxRate, FieldPeriods}
}

// Result is one recomputation of the calculator.
type Result struct {
	Parameters finance.Parameters `json:"parameters"`
	Points     []finance.Point    `json:"points"`
	Summary    finance.Summary    `json:"summary"`
	Err        error              `json:"-"`
}

// FinalBalance is the balance after the last period, or the principal when
// nothing was projected.
func (r Result) FinalBalance() float64 {
	return r.Summary.FinalBalance
}

// DefaultParameters are the calculator's initial inputs.
func DefaultParameters() finance.Parameters {
	return finance.Parameters{
		Principal:          constants.DefaultPrincipal,
		AnnualYieldRate:    constants.DefaultAnnualYieldRate,
		AdminFeeRate:       constants.DefaultAdminFeeRate,
		PerformanceFeeRate: constants.DefaultPerformanceFeeRate,
		IncomeTaxRate:      constants.DefaultIncomeTaxRate,
		Periods:            constants.DefaultPeriods,
	}
}

// Calculator owns the current parameters and recomputes on change.
type Calculator struct {
	mu        sync.Mutex
	params    finance.Parameters
	limits    validation.Limits
	debouncer *Debouncer
	results   chan Result
	logger    *zap.Logger
}

// New returns a Calculator with default parameters. A zero interval uses
// constants.DefaultDebounceInterval; a negative one disables debouncing.
func New(logger *zap.Logger, interval time.Duration, limits validation.Limits) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval == 0 {
		interval = constants.DefaultDebounceInterval
	}
	return &Calculator{
		params:    DefaultParameters(),
		limits:    limits.WithDefaults(),
		debouncer: NewDebouncer(interval),
		results:   make(chan Result, 1),
		logger:    logger,
	}
}

// Results delivers recomputations. The channel holds only the latest
// result; an unread result is replaced by a newer one.
func (c *Calculator) Results() <-chan Result {
	return c.results
}

// Parameters returns the current inputs.
func (c *Calculator) Parameters() finance.Parameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Set updates one field and schedules a recomputation.
func (c *Calculator) Set(field string, value float64) error {
	c.mu.Lock()
	if err := setField(&c.params, field, value); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.debouncer.Trigger(c.publish)
	return nil
}

// SetString parses value and updates one field, e.g. from "principal=5000".
func (c *Calculator) SetString(field, value string) error {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", field, value)
	}
	return c.Set(field, parsed)
}

// Apply replaces every field and schedules a recomputation.
func (c *Calculator) Apply(params finance.Parameters) {
	c.mu.Lock()
	c.params = params
	c.mu.Unlock()

	c.debouncer.Trigger(c.publish)
}

// Recompute cancels any scheduled recomputation and computes now.
func (c *Calculator) Recompute() Result {
	c.debouncer.Stop()
	return c.compute()
}

// Flush runs a scheduled recomputation immediately.
func (c *Calculator) Flush() bool {
	return c.debouncer.Flush()
}

// Close drops any scheduled recomputation.
func (c *Calculator) Close() {
	c.debouncer.Stop()
}

func (c *Calculator) compute() Result {
	params := c.Parameters()
	result := Result{Parameters: params}

	if err := validation.ValidateParameters(params, c.limits); err != nil {
		result.Err = err
		result.Summary = finance.Summarize(params.Principal, nil)
		c.logger.Debug("calculator inputs rejected",
			zap.String("op", "calculator.compute"),
			zap.Error(err),
		)
		return result
	}

	periods := finance.ProjectDetailed(params)
	result.Points = make([]finance.Point, len(periods))
	for i, period := range periods {
		result.Points[i] = finance.Point{Period: period.Period, Balance: period.Balance}
	}
	result.Summary = finance.Summarize(params.Principal, periods)
	return result
}

func (c *Calculator) publish() {
	result := c.compute()
	for {
		select {
		case c.results <- result:
			return
		default:
		}
		// Drop the stale result nobody has read yet.
		select {
		case <-c.results:
		default:
		}
	}
}

func setField(params *finance.Parameters, field string, value float64) error {
	switch field {
	case FieldPrincipal:
		params.Principal = value
	case FieldAnnualYieldRate:
		params.AnnualYieldRate = value
	case FieldAdminFeeRate:
		params.AdminFeeRate = value
	case FieldPerformanceFeeRate:
		params.PerformanceFeeRate = value
	case FieldIncomeTaxRate:
		params.IncomeTaxRate = value
	case FieldPeriods:
		if value != float64(int(value)) {
			return fmt.Errorf("%s: must be a whole number, got %g", field, value)
		}
		params.Periods = int(value)
	default:
		return fmt.Errorf("unknown calculator field %q", field)
	}
	return nil
}
