package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iwvelando/taxsim/internal/apiclient"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAPI is a mock implementation of API for testing
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListFormulas(ctx context.Context, token string) ([]formula.Formula, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]formula.Formula), args.Error(1)
}

func (m *MockAPI) ProcessFormula(ctx context.Context, token string, id, first, last int) (formula.Projection, error) {
	args := m.Called(ctx, token, id, first, last)
	return args.Get(0).(formula.Projection), args.Error(1)
}

func projection(id int, name string, values ...float64) formula.Projection {
	p := formula.Projection{FormulaID: id, FormulaName: name, InitialAmount: 1000}
	for i, v := range values {
		p.Rows = append(p.Rows, formula.Row{Month: i + 1, BeforeTax: v + 1, AfterTax: v})
	}
	return p
}

func TestLoadMergesByMonth(t *testing.T) {
	api := new(MockAPI)
	api.On("ListFormulas", mock.Anything, "tok").Return([]formula.Formula{
		{ID: 1, Name: "CDB"},
		{ID: 2, Name: "FII"},
	}, nil)
	api.On("ProcessFormula", mock.Anything, "tok", 1, 1, 3).Return(projection(1, "CDB", 1010, 1020, 1030), nil)
	api.On("ProcessFormula", mock.Anything, "tok", 2, 1, 3).Return(projection(2, "FII", 1100, 1200), nil)

	result, err := NewService(api, zap.NewNop(), 2).Load(context.Background(), "tok", 1, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"CDB", "FII"}, result.Series)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, ChartRow{Month: 1, Values: map[string]float64{"CDB": 1010, "FII": 1100}}, result.Rows[0])
	assert.Equal(t, ChartRow{Month: 2, Values: map[string]float64{"CDB": 1020, "FII": 1200}}, result.Rows[1])
	assert.Equal(t, ChartRow{Month: 3, Values: map[string]float64{"CDB": 1030}}, result.Rows[2])
	assert.Len(t, result.Projections, 2)
	api.AssertExpectations(t)
}

func TestLoadDisambiguatesDuplicateNames(t *testing.T) {
	api := new(MockAPI)
	api.On("ListFormulas", mock.Anything, "tok").Return([]formula.Formula{
		{ID: 1, Name: "CDB"},
		{ID: 2, Name: "CDB"},
	}, nil)
	api.On("ProcessFormula", mock.Anything, "tok", 1, 1, 1).Return(projection(1, "CDB", 10), nil)
	api.On("ProcessFormula", mock.Anything, "tok", 2, 1, 1).Return(projection(2, "CDB", 20), nil)

	result, err := NewService(api, nil, 0).Load(context.Background(), "tok", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"CDB #1", "CDB #2"}, result.Series)
	assert.Equal(t, map[string]float64{"CDB #1": 10, "CDB #2": 20}, result.Rows[0].Values)
}

func TestLoadFailsAsAWhole(t *testing.T) {
	remote := &apiclient.APIError{Status: 500, Message: "Erro na API"}

	api := new(MockAPI)
	api.On("ListFormulas", mock.Anything, "tok").Return([]formula.Formula{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, nil)
	api.On("ProcessFormula", mock.Anything, "tok", 1, 1, 12).Return(projection(1, "A", 1), nil)
	api.On("ProcessFormula", mock.Anything, "tok", 2, 1, 12).Return(formula.Projection{}, remote)

	result, err := NewService(api, zap.NewNop(), 1).Load(context.Background(), "tok", 1, 12)
	require.Error(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 500, apiclient.StatusOf(err))
	assert.Contains(t, err.Error(), "process formula 2 (B)")
}

func TestLoadListFailure(t *testing.T) {
	api := new(MockAPI)
	api.On("ListFormulas", mock.Anything, "tok").Return(nil, errors.New("boom"))

	_, err := NewService(api, zap.NewNop(), 1).Load(context.Background(), "tok", 1, 12)
	assert.ErrorContains(t, err, "boom")
}

func TestLoadRejectsInvalidRange(t *testing.T) {
	api := new(MockAPI)
	_, err := NewService(api, zap.NewNop(), 1).Load(context.Background(), "tok", 4, 2)
	assert.True(t, errors.Is(err, apiclient.ErrInvalidRange))
	api.AssertNotCalled(t, "ListFormulas", mock.Anything, mock.Anything)
}

func TestLoadNoFormulas(t *testing.T) {
	api := new(MockAPI)
	api.On("ListFormulas", mock.Anything, "tok").Return([]formula.Formula{}, nil)

	result, err := NewService(api, zap.NewNop(), 1).Load(context.Background(), "tok", 1, 12)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.NotNil(t, result.Rows)
}

// boundedAPI records the highest number of concurrent ProcessFormula calls.
type boundedAPI struct {
	formulas []formula.Formula
	active   int32
	peak     int32
	mu       sync.Mutex
}

func (b *boundedAPI) ListFormulas(ctx context.Context, token string) ([]formula.Formula, error) {
	return b.formulas, nil
}

func (b *boundedAPI) ProcessFormula(ctx context.Context, token string, id, first, last int) (formula.Projection, error) {
	current := atomic.AddInt32(&b.active, 1)
	b.mu.Lock()
	if current > b.peak {
		b.peak = current
	}
	b.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&b.active, -1)
	return projection(id, "x", float64(id)), nil
}

func TestLoadBoundsConcurrency(t *testing.T) {
	api := &boundedAPI{}
	for i := 1; i <= 8; i++ {
		api.formulas = append(api.formulas, formula.Formula{ID: i, Name: string(rune('A' + i))})
	}

	result, err := NewService(api, zap.NewNop(), 3).Load(context.Background(), "tok", 1, 1)
	require.NoError(t, err)
	assert.Len(t, result.Rows[0].Values, 8)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.LessOrEqual(t, api.peak, int32(3))
	assert.Greater(t, api.peak, int32(0))
}
