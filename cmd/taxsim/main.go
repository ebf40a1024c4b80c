package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/logging"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.uber.org/zap"
)

// app carries what every subcommand needs.
type app struct {
	conf         *config.Configuration
	logger       *zap.Logger
	outputFormat string
	stdin        io.Reader
	stdout       io.Writer
}

const usage = `usage: taxsim [-config file] [-output-format pretty|csv] [-log-level level] <command> [args]

commands:
  calc        project every active scenario (default)
  solve       goal seek scenario targets, then project
  watch       read field=value lines from stdin and recompute as they settle
  login       start a session with the formula API
  register    create an account and start a session
  logout      end the session
  whoami      show the session user
  formulas    list | show <id> | process <id> | csv <id> | delete <id>
  dashboard   after-tax values of every formula by month
`

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	// Initialize logging based on config and CLI override
	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		conf:         conf,
		logger:       logger,
		outputFormat: outputFormat,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
	}

	command, args := "calc", flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if err := a.run(ctx, command, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Fatal("command failed",
			zap.String("op", "main"),
			zap.String("command", command),
			zap.Error(err),
		)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "calc":
		return a.runCalc(args)
	case "solve":
		return a.runSolve(args)
	case "watch":
		return a.runWatch(ctx, args)
	case "login":
		return a.runLogin(ctx, args)
	case "register":
		return a.runRegister(ctx, args)
	case "logout":
		return a.runLogout()
	case "whoami":
		return a.runWhoami(ctx)
	case "formulas":
		return a.runFormulas(ctx, args)
	case "dashboard":
		return a.runDashboard(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}
