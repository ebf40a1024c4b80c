package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/taxsim/internal/calculator"
	"github.com/iwvelando/taxsim/internal/config"
	"github.com/iwvelando/taxsim/internal/forecast"
	"github.com/iwvelando/taxsim/internal/optimizer"
	"github.com/iwvelando/taxsim/pkg/adapters"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/format"
	"github.com/iwvelando/taxsim/pkg/output"
	"go.uber.org/zap"
)

// parameterFlags registers one flag per calculator field. Only flags the
// user sets override the scenario.
type parameterFlags struct {
	fs     *flag.FlagSet
	values map[string]*float64
	set    map[string]bool
}

func newParameterFlags(name string) *parameterFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	p := &parameterFlags{fs: fs, values: make(map[string]*float64)}
	for _, field := range calculator.Fields() {
		p.values[field] = fs.Float64(field, 0, "override "+field+" of the first active scenario")
	}
	return p
}

func (p *parameterFlags) parse(args []string) error {
	if err := p.fs.Parse(args); err != nil {
		return err
	}
	p.set = make(map[string]bool)
	p.fs.Visit(func(f *flag.Flag) {
		p.set[f.Name] = true
	})
	return nil
}

// apply writes the set flags into the first active scenario.
func (p *parameterFlags) apply(conf *config.Configuration) error {
	if len(p.set) == 0 {
		return nil
	}
	for i := range conf.Scenarios {
		if !conf.Scenarios[i].Active {
			continue
		}
		params := adapters.ScenarioToParameters(conf.Scenarios[i])
		calc := calculator.New(nil, -1, conf.Limits)
		calc.Apply(params)
		for _, field := range calculator.Fields() {
			if !p.set[field] {
				continue
			}
			if err := calc.Set(field, *p.values[field]); err != nil {
				return err
			}
		}
		adapters.ApplyParameters(&conf.Scenarios[i], calc.Parameters())
		calc.Close()
		return nil
	}
	return fmt.Errorf("no active scenario to override")
}

func (a *app) runCalc(args []string) error {
	flags := newParameterFlags("calc")
	if err := flags.parse(args); err != nil {
		return err
	}
	if err := flags.apply(a.conf); err != nil {
		return err
	}

	results, err := forecast.GetForecast(a.logger, *a.conf)
	if err != nil {
		return fmt.Errorf("failed to compute forecast: %w", err)
	}
	return a.writeForecasts(results)
}

func (a *app) runSolve(args []string) error {
	flags := newParameterFlags("solve")
	if err := flags.parse(args); err != nil {
		return err
	}
	if err := flags.apply(a.conf); err != nil {
		return err
	}

	runner, err := optimizer.NewRunner(a.logger, a.conf)
	if err != nil {
		return err
	}
	solved, err := runner.Run()
	if err != nil {
		return fmt.Errorf("failed to solve targets: %w", err)
	}
	if solved.Empty() {
		a.logger.Warn("no scenario defines a target",
			zap.String("op", "main.runSolve"),
		)
	}

	results, err := forecast.GetForecast(a.logger, *a.conf)
	if err != nil {
		return fmt.Errorf("failed to compute forecast: %w", err)
	}
	solved.Apply(results)
	return a.writeForecasts(results)
}

func (a *app) writeForecasts(results []forecast.Forecast) error {
	switch a.outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(a.stdout, results)
	default:
		return output.PrettyFormat(a.stdout, results)
	}
}

// runWatch feeds field=value lines from stdin into a debounced calculator
// and prints every settled result.
func (a *app) runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	debounce := fs.Duration("debounce", a.conf.Calculator.Debounce, "quiet interval before recomputing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	calc := calculator.New(a.logger, *debounce, a.conf.Limits)
	defer calc.Close()
	if scenarios := a.conf.ActiveScenarios(); len(scenarios) > 0 {
		calc.Apply(adapters.ScenarioToParameters(scenarios[0]))
	}

	done := make(chan struct{})
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for {
			select {
			case result := <-calc.Results():
				writeCalculatorResult(a.stdout, result)
			case <-done:
				select {
				case result := <-calc.Results():
					writeCalculatorResult(a.stdout, result)
				default:
				}
				return
			}
		}
	}()

	err := readAssignments(ctx, a.stdin, func(field, value string, err error) {
		if err == nil {
			err = calc.SetString(field, value)
		}
		if err != nil {
			fmt.Fprintf(a.stdout, "error: %v\n", err)
		}
	})
	calc.Flush()
	close(done)
	<-printed
	return err
}

// readAssignments calls fn for every "field=value" line until EOF or ctx
// is cancelled. Blank lines and lines starting with # are skipped; a line
// that does not parse reaches fn with its error.
func readAssignments(ctx context.Context, in io.Reader, fn func(field, value string, err error)) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(parseAssignment(line))
	}
	return scanner.Err()
}

// parseAssignment splits "field=value", matching field names
// case-insensitively.
func parseAssignment(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", fmt.Errorf("expected field=value, got %q", line)
	}
	key = strings.TrimSpace(key)
	for _, field := range calculator.Fields() {
		if strings.EqualFold(field, key) {
			return field, strings.TrimSpace(value), nil
		}
	}
	return "", "", fmt.Errorf("unknown field %q (expected one of %s)", key, strings.Join(calculator.Fields(), ", "))
}

func writeCalculatorResult(w io.Writer, result calculator.Result) {
	if result.Err != nil {
		fmt.Fprintf(w, "invalid: %v\n", result.Err)
		return
	}
	p := result.Parameters
	fmt.Fprintf(w, "%s @ %g%% for %d periods -> %s\n",
		format.Currency(p.Principal), p.AnnualYieldRate, p.Periods, format.Currency(result.FinalBalance()))
}
