package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/taxsim/pkg/constants"
)

const sampleConfig = `
logging:
  level: debug
  format: console
output:
  format: csv
api:
  baseURL: https://api.example.com/
  timeout: 5s
session:
  tokenFile: /tmp/token
calculator:
  debounce: 150ms
limits:
  maxPeriods: 50
scenarios:
  - name: Base
    active: true
    principal: 10000
    annualYieldRate: 10
    adminFeeRate: 1
    performanceFeeRate: 20
    incomeTaxRate: 15
    periods: 5
    target:
      finalBalance: 20000
      field: principal
      min: 1
      max: 100000
  - name: Off
    active: false
    principal: 500
    periods: 2
`

func TestLoadConfiguration(t *testing.T) {
	// Test with nonexistent file
	_, err := LoadConfiguration("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent config file")
	}

	path := filepath.Join(t.TempDir(), "taxsim.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" {
		t.Errorf("Unexpected logging config: %+v", conf.Logging)
	}
	if conf.Output.Format != constants.OutputFormatCSV {
		t.Errorf("Expected csv output, got %s", conf.Output.Format)
	}
	if conf.API.BaseURL != "https://api.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", conf.API.BaseURL)
	}
	if conf.API.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", conf.API.Timeout)
	}
	if conf.Session.TokenFile != "/tmp/token" {
		t.Errorf("Unexpected token file %s", conf.Session.TokenFile)
	}
	if conf.Calculator.Debounce != 150*time.Millisecond {
		t.Errorf("Expected 150ms debounce, got %v", conf.Calculator.Debounce)
	}
	if conf.Limits.MaxPeriods != 50 {
		t.Errorf("Expected maxPeriods 50, got %d", conf.Limits.MaxPeriods)
	}
	if conf.Limits.MaxPrincipal != constants.DefaultMaxPrincipal {
		t.Errorf("Expected default maxPrincipal, got %g", conf.Limits.MaxPrincipal)
	}

	if len(conf.Scenarios) != 2 {
		t.Fatalf("Expected 2 scenarios, got %d", len(conf.Scenarios))
	}
	base := conf.Scenarios[0]
	if base.Principal != 10000 || base.PerformanceFeeRate != 20 || base.Periods != 5 {
		t.Errorf("Unexpected scenario values: %+v", base)
	}
	if base.Target == nil {
		t.Fatal("Expected target to be parsed")
	}
	if base.Target.Tolerance != defaultTargetTolerance || base.Target.MaxIterations != defaultTargetMaxIterations {
		t.Errorf("Expected target defaults applied, got %+v", base.Target)
	}
	if base.Target.Min == nil || *base.Target.Min != 1 {
		t.Errorf("Expected target min 1, got %v", base.Target.Min)
	}

	active := conf.ActiveScenarios()
	if len(active) != 1 || active[0].Name != "Base" {
		t.Errorf("Unexpected active scenarios: %+v", active)
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	conf, err := LoadConfigurationFromReader(strings.NewReader("logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if conf.API.BaseURL != constants.DefaultAPIBaseURL {
		t.Errorf("Expected default base URL, got %s", conf.API.BaseURL)
	}
	if conf.API.Timeout != constants.DefaultAPITimeout {
		t.Errorf("Expected default timeout, got %v", conf.API.Timeout)
	}
	if conf.Session.TokenFile != constants.DefaultTokenFile {
		t.Errorf("Expected default token file, got %s", conf.Session.TokenFile)
	}
	if conf.Calculator.Debounce != constants.DefaultDebounceInterval {
		t.Errorf("Expected default debounce, got %v", conf.Calculator.Debounce)
	}
	if conf.Output.Format != constants.OutputFormatPretty {
		t.Errorf("Expected pretty output, got %s", conf.Output.Format)
	}
	if len(conf.Scenarios) != 1 || conf.Scenarios[0] != DefaultScenario() {
		t.Errorf("Expected the default scenario, got %+v", conf.Scenarios)
	}
}

func TestLoadConfigurationEnvironmentOverride(t *testing.T) {
	t.Setenv("TAXSIM_API_BASEURL", "http://override:9000")

	conf, err := LoadConfigurationFromReader(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if conf.API.BaseURL != "http://override:9000" {
		t.Errorf("Expected environment override, got %s", conf.API.BaseURL)
	}
}

func TestLoggingConfiguration(t *testing.T) {
	conf := Configuration{
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "json",
			OutputFile: "taxsim.log",
		},
	}
	conf.Normalize()

	if conf.Logging.Level != "warn" || conf.Logging.Format != "json" || conf.Logging.OutputFile != "taxsim.log" {
		t.Errorf("Normalize() must not change logging settings, got %+v", conf.Logging)
	}
}

func TestValidateConfiguration(t *testing.T) {
	conf := Configuration{Scenarios: []Scenario{DefaultScenario()}}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("Expected no warnings for default scenario, got %v", warnings)
	}

	risky := DefaultScenario()
	risky.Periods = 0
	conf.Scenarios = append(conf.Scenarios, risky)
	warnings := conf.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Fatalf("Expected duplicate-name and empty-projection warnings, got %v", warnings)
	}
}
