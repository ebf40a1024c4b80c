// Package constants provides shared constants for the taxsim application.
package constants

import "time"

// Financial constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// DisplayPlaces is the number of decimal places used for displayed balances
	DisplayPlaces int32 = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Calculator defaults mirror the initial values of the calculator screen.
const (
	DefaultPrincipal          = 10000.0
	DefaultAnnualYieldRate    = 10.0
	DefaultAdminFeeRate       = 1.0
	DefaultPerformanceFeeRate = 20.0
	DefaultIncomeTaxRate      = 15.0
	DefaultPeriods            = 5

	// DefaultDebounceInterval is the input quiescence required before recomputing
	DefaultDebounceInterval = 300 * time.Millisecond
)

// Validation limits
const (
	DefaultMaxPrincipal = 1e12
	DefaultMaxPeriods   = 600
	DefaultMaxRate      = 1000.0
)

// Formula projection defaults
const (
	// DefaultFirstMonth and DefaultLastMonth bound the default month range for
	// server-side formula projections.
	DefaultFirstMonth = 1
	DefaultLastMonth  = 12

	// DefaultDashboardConcurrency bounds concurrent formula processing requests.
	DefaultDashboardConcurrency = 4
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "taxsim.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultTokenFile is where the CLI persists the session token
	DefaultTokenFile = ".taxsim-token"

	// EnvPrefix prefixes environment overrides, e.g. TAXSIM_API_BASEURL
	EnvPrefix = "TAXSIM"
)

// Remote API defaults
const (
	// DefaultAPIBaseURL is the remote formula API used when none is configured
	DefaultAPIBaseURL = "http://localhost:5000"

	// DefaultAPITimeout bounds every remote API call
	DefaultAPITimeout = 10 * time.Second
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	// DefaultServiceName identifies the service in traces
	DefaultServiceName = "taxsim"
)
