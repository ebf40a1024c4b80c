// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/taxsim/pkg/configprocessor"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for taxsim.
type Configuration struct {
	Logging    LoggingConfig     `yaml:"logging,omitempty"`
	Output     OutputConfig      `yaml:"output,omitempty"`
	API        APIConfig         `yaml:"api,omitempty"`
	Session    SessionConfig     `yaml:"session,omitempty"`
	Calculator CalculatorConfig  `yaml:"calculator,omitempty"`
	Limits     validation.Limits `yaml:"limits,omitempty"`
	Scenarios  []Scenario        `yaml:"scenarios,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// APIConfig points at the remote formula API.
type APIConfig struct {
	BaseURL string        `yaml:"baseURL,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SessionConfig controls where the CLI keeps its session token.
type SessionConfig struct {
	TokenFile string `yaml:"tokenFile,omitempty"`
}

// CalculatorConfig tunes the interactive calculator.
type CalculatorConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// Scenario is one named set of projection parameters.
type Scenario struct {
	Name               string        `yaml:"name"`
	Active             bool          `yaml:"active"`
	Principal          float64       `yaml:"principal"`
	AnnualYieldRate    float64       `yaml:"annualYieldRate"`
	AdminFeeRate       float64       `yaml:"adminFeeRate"`
	PerformanceFeeRate float64       `yaml:"performanceFeeRate"`
	IncomeTaxRate      float64       `yaml:"incomeTaxRate"`
	Periods            int           `yaml:"periods"`
	Target             *TargetConfig `yaml:"target,omitempty"`
}

// DefaultScenario returns the calculator's initial parameters as an active
// scenario.
func DefaultScenario() Scenario {
	return Scenario{
		Name:               "default",
		Active:             true,
		Principal:          constants.DefaultPrincipal,
		AnnualYieldRate:    constants.DefaultAnnualYieldRate,
		AdminFeeRate:       constants.DefaultAdminFeeRate,
		PerformanceFeeRate: constants.DefaultPerformanceFeeRate,
		IncomeTaxRate:      constants.DefaultIncomeTaxRate,
		Periods:            constants.DefaultPeriods,
	}
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A .env file in the working directory is loaded into
// the environment first, and TAXSIM_* variables override file values.
func LoadConfiguration(configPath string) (*Configuration, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.baseURL", constants.DefaultAPIBaseURL)
	v.SetDefault("api.timeout", constants.DefaultAPITimeout)
	v.SetDefault("session.tokenFile", constants.DefaultTokenFile)
	v.SetDefault("calculator.debounce", constants.DefaultDebounceInterval)
	v.SetDefault("output.format", constants.OutputFormatPretty)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.Normalize()
	return &configuration, nil
}

// Normalize applies defaults to unset values.
func (conf *Configuration) Normalize() {
	if conf.API.BaseURL == "" {
		conf.API.BaseURL = constants.DefaultAPIBaseURL
	}
	conf.API.BaseURL = strings.TrimRight(conf.API.BaseURL, "/")
	if conf.API.Timeout <= 0 {
		conf.API.Timeout = constants.DefaultAPITimeout
	}
	if conf.Session.TokenFile == "" {
		conf.Session.TokenFile = constants.DefaultTokenFile
	}
	if conf.Calculator.Debounce <= 0 {
		conf.Calculator.Debounce = constants.DefaultDebounceInterval
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}
	conf.Limits = conf.Limits.WithDefaults()
	if len(conf.Scenarios) == 0 {
		conf.Scenarios = []Scenario{DefaultScenario()}
	}
	for i := range conf.Scenarios {
		if conf.Scenarios[i].Target != nil {
			conf.Scenarios[i].Target.Normalize()
		}
	}
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (conf *Configuration) ValidateConfiguration() []string {
	scenarios := make([]configprocessor.ScenarioInfo, 0, len(conf.Scenarios))
	for _, scenario := range conf.Scenarios {
		scenarios = append(scenarios, configprocessor.ScenarioInfo{
			Name:               scenario.Name,
			Active:             scenario.Active,
			AnnualYieldRate:    scenario.AnnualYieldRate,
			AdminFeeRate:       scenario.AdminFeeRate,
			PerformanceFeeRate: scenario.PerformanceFeeRate,
			IncomeTaxRate:      scenario.IncomeTaxRate,
			Periods:            scenario.Periods,
		})
	}

	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(scenarios)
}

// ActiveScenarios returns the scenarios flagged active, in file order.
func (conf *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, scenario := range conf.Scenarios {
		if scenario.Active {
			active = append(active, scenario)
		}
	}
	return active
}
