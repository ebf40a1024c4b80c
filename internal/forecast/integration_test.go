package forecast_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/internal/forecast"
	"github.com/iwvelando/taxsim/internal/optimizer"
	"github.com/iwvelando/taxsim/pkg/mathutil"
	"github.com/iwvelando/taxsim/pkg/output"
	"github.com/iwvelando/taxsim/pkg/testutil"
	"go.uber.org/zap"
)

const exampleConfig = "../../taxsim.example.yaml"

func TestExampleConfigurationEndToEnd(t *testing.T) {
	logger := zap.NewNop()

	conf, err := config.LoadConfiguration(exampleConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Fatalf("expected no configuration warnings, got %v", warnings)
	}

	runner, err := optimizer.NewRunner(logger, conf)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	solved, err := runner.Run()
	if err != nil {
		t.Fatalf("optimizer failed: %v", err)
	}

	results, err := forecast.GetForecast(logger, *conf)
	if err != nil {
		t.Fatalf("GetForecast failed: %v", err)
	}
	solved.Apply(results)

	if len(results) != 3 {
		t.Fatalf("expected 3 active scenarios, got %d", len(results))
	}
	if testutil.FindScenario(results, "Rascunho") != nil {
		t.Error("inactive scenario should not be forecast")
	}

	base := testutil.FindScenario(results, "Fundo DI")
	if base == nil {
		t.Fatal("missing Fundo DI scenario")
	}
	testutil.AssertBalances(t, base.Points, "10540.00", "11109.16", "11709.05", "12341.34", "13007.78")

	noFees := testutil.FindScenario(results, "Fundo DI sem taxas")
	if noFees == nil {
		t.Fatal("missing Fundo DI sem taxas scenario")
	}
	if noFees.FinalBalance() <= base.FinalBalance() {
		t.Errorf("removing fees should raise the final balance: %v <= %v", noFees.FinalBalance(), base.FinalBalance())
	}

	goal := testutil.FindScenario(results, "Meta de 20 mil")
	if goal == nil || goal.Optimization == nil {
		t.Fatal("expected goal seek summary on Meta de 20 mil")
	}
	if !goal.Optimization.Converged {
		t.Errorf("expected goal seek to converge, notes: %v", goal.Optimization.Notes)
	}
	if !mathutil.WithinTolerance(goal.FinalBalance(), 20000, 0.01) {
		t.Errorf("expected final balance near 20000, got %v", goal.FinalBalance())
	}

	var pretty bytes.Buffer
	if err := output.PrettyFormat(&pretty, results); err != nil {
		t.Fatalf("PrettyFormat failed: %v", err)
	}
	for _, want := range []string{"--- Results for scenario Fundo DI ---", "R$ 13.007,78", "Goal seek: principal"} {
		if !strings.Contains(pretty.String(), want) {
			t.Errorf("pretty output missing %q", want)
		}
	}

	csvText, err := output.CsvString(results)
	if err != nil {
		t.Fatalf("CsvString failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header plus 5 periods, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[5], "5,13007.78,") {
		t.Errorf("unexpected last CSV row %q", lines[5])
	}
}

func TestForecastIsDeterministic(t *testing.T) {
	conf, err := config.LoadConfiguration(exampleConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	first, err := forecast.GetForecast(zap.NewNop(), *conf)
	if err != nil {
		t.Fatalf("GetForecast failed: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := forecast.GetForecast(zap.NewNop(), *conf)
		if err != nil {
			t.Fatalf("GetForecast failed: %v", err)
		}
		for i := range first {
			for j := range first[i].Points {
				if first[i].Points[j] != again[i].Points[j] {
					t.Fatalf("run %d differs at scenario %s period %d", run, first[i].Name, j+1)
				}
			}
		}
	}
}
