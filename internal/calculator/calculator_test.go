package calculator

import (
	"testing"
	"time"

	"github.com/iwvelando/taxsim/pkg/finance"
	"github.com/iwvelando/taxsim/pkg/mathutil"
	"github.com/iwvelando/taxsim/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, c *Calculator) Result {
	t.Helper()
	select {
	case result := <-c.Results():
		return result
	case <-time.After(time.Second):
		t.Fatal("no result published")
		return Result{}
	}
}

func TestRecomputeDefaults(t *testing.T) {
	c := New(zap.NewNop(), time.Hour, validation.Limits{})
	defer c.Close()

	result := c.Recompute()
	require.NoError(t, result.Err)
	assert.Equal(t, DefaultParameters(), result.Parameters)
	require.Len(t, result.Points, 5)
	assert.Equal(t, "13007.78", mathutil.FixedString(result.FinalBalance()))
	assert.Equal(t, finance.Project(DefaultParameters()), result.Points)
}

func TestSetCoalescesIntoOneResult(t *testing.T) {
	c := New(zap.NewNop(), 30*time.Millisecond, validation.Limits{})
	defer c.Close()

	require.NoError(t, c.Set(FieldPrincipal, 1))
	require.NoError(t, c.Set(FieldPrincipal, 10))
	require.NoError(t, c.Set(FieldPrincipal, 100))
	require.NoError(t, c.SetString(FieldPeriods, "2"))

	result := receive(t, c)
	require.NoError(t, result.Err)
	assert.Equal(t, 100.0, result.Parameters.Principal)
	assert.Len(t, result.Points, 2)

	select {
	case extra := <-c.Results():
		t.Fatalf("expected a single coalesced result, got another: %+v", extra.Parameters)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestResultsKeepOnlyLatest(t *testing.T) {
	c := New(zap.NewNop(), -1, validation.Limits{})
	defer c.Close()

	// Without debouncing every Set publishes; nobody reads in between.
	require.NoError(t, c.Set(FieldPeriods, 1))
	require.NoError(t, c.Set(FieldPeriods, 2))
	require.NoError(t, c.Set(FieldPeriods, 3))

	result := receive(t, c)
	assert.Equal(t, 3, result.Parameters.Periods)
	assert.Len(t, c.Results(), 0)
}

func TestFlushPublishesImmediately(t *testing.T) {
	c := New(zap.NewNop(), time.Hour, validation.Limits{})
	defer c.Close()

	c.Apply(finance.Parameters{Principal: 1000, AnnualYieldRate: 0, Periods: 3})
	assert.True(t, c.Flush())

	result := receive(t, c)
	require.NoError(t, result.Err)
	for _, point := range result.Points {
		assert.Equal(t, 1000.0, point.Balance)
	}
}

func TestInvalidInputsReportError(t *testing.T) {
	c := New(zap.NewNop(), -1, validation.Limits{})
	defer c.Close()

	require.NoError(t, c.Set(FieldPrincipal, -5))
	result := receive(t, c)
	assert.Error(t, result.Err)
	assert.Empty(t, result.Points)
	assert.Equal(t, -5.0, result.Parameters.Principal)
	assert.Equal(t, -5.0, result.FinalBalance())
}

func TestRejectedPeriodsKeepPrincipalAsFinalBalance(t *testing.T) {
	c := New(zap.NewNop(), -1, validation.Limits{})
	defer c.Close()

	require.NoError(t, c.Set(FieldPeriods, 0))
	result := receive(t, c)
	require.Error(t, result.Err)
	assert.Empty(t, result.Points)
	assert.Equal(t, DefaultParameters().Principal, result.FinalBalance())
}

func TestSetRejectsBadFields(t *testing.T) {
	c := New(nil, time.Hour, validation.Limits{})
	defer c.Close()

	assert.Error(t, c.Set("years", 3))
	assert.Error(t, c.Set(FieldPeriods, 2.5))
	assert.Error(t, c.SetString(FieldPrincipal, "abc"))
	assert.Equal(t, DefaultParameters(), c.Parameters())
}

func TestFieldsAreSettable(t *testing.T) {
	c := New(zap.NewNop(), time.Hour, validation.Limits{})
	defer c.Close()

	for _, field := range Fields() {
		assert.NoError(t, c.Set(field, 7), field)
	}
	assert.Equal(t, finance.Parameters{
		Principal:          7,
		AnnualYieldRate:    7,
		AdminFeeRate:       7,
		PerformanceFeeRate: 7,
		IncomeTaxRate:      7,
		Periods:            7,
	}, c.Parameters())
}
