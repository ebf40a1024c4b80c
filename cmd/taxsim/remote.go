package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/iwvelando/taxsim/internal/apiclient"
	"github.com/iwvelando/taxsim/internal/dashboard"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/iwvelando/taxsim/internal/session"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/output"
	"go.uber.org/zap"
)

func (a *app) client() *apiclient.Client {
	return apiclient.New(a.conf.API.BaseURL, a.conf.API.Timeout, a.logger)
}

func (a *app) sessionManager(client *apiclient.Client) *session.Manager {
	return session.NewManager(client, session.NewFileStore(a.conf.Session.TokenFile), a.logger)
}

// token restores the persisted session and returns its bearer token.
func (a *app) token(ctx context.Context, client *apiclient.Client) (string, error) {
	manager := a.sessionManager(client)
	state, err := manager.Restore(ctx)
	if err != nil {
		return "", fmt.Errorf("restore session: %w", err)
	}
	switch state {
	case session.Expired:
		return "", fmt.Errorf("%w: run taxsim login again", session.ErrSessionExpired)
	case session.Anonymous:
		return "", fmt.Errorf("%w: run taxsim login first", session.ErrNotAuthenticated)
	}
	return manager.Token()
}

func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv(constants.EnvPrefix+"_PASSWORD"), "account password (default $TAXSIM_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("login: -email and -password are required")
	}

	user, err := a.sessionManager(a.client()).Login(ctx, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	a.logger.Info("logged in",
		zap.String("op", "main.runLogin"),
		zap.Int("user_id", user.ID),
	)
	_, err = fmt.Fprintf(a.stdout, "Logged in as %s <%s>\n", user.Name, user.Email)
	return err
}

func (a *app) runRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv(constants.EnvPrefix+"_PASSWORD"), "account password (default $TAXSIM_PASSWORD)")
	role := fs.String("role", string(formula.RoleDefault), "account role: default or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return fmt.Errorf("register: -name, -email and -password are required")
	}

	user, err := a.sessionManager(a.client()).Register(ctx, *name, *email, *password, formula.Role(*role))
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	_, err = fmt.Fprintf(a.stdout, "Registered and logged in as %s <%s>\n", user.Name, user.Email)
	return err
}

func (a *app) runLogout() error {
	if err := a.sessionManager(a.client()).Logout(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	_, err := fmt.Fprintln(a.stdout, "Logged out")
	return err
}

func (a *app) runWhoami(ctx context.Context) error {
	manager := a.sessionManager(a.client())
	state, err := manager.Restore(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	user, ok := manager.User()
	if state != session.Authenticated || !ok {
		_, err = fmt.Fprintf(a.stdout, "Session: %s\n", state)
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "%s <%s> (id %d, role %s)\n", user.Name, user.Email, user.ID, user.Role)
	return err
}

// monthFlags registers -first and -last on fs.
func monthFlags(fs *flag.FlagSet) (*int, *int) {
	first := fs.Int("first", constants.DefaultFirstMonth, "first month of the projection")
	last := fs.Int("last", constants.DefaultLastMonth, "last month of the projection")
	return first, last
}

func (a *app) runFormulas(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("formulas: expected list, show, process, csv or delete")
	}
	action, args := args[0], args[1:]
	switch action {
	case "list", "show", "process", "csv", "delete":
	default:
		return fmt.Errorf("formulas: unknown action %q", action)
	}

	fs := flag.NewFlagSet("formulas "+action, flag.ContinueOnError)
	first, last := monthFlags(fs)
	outFile := fs.String("out", "", "write CSV to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var id int
	if action != "list" {
		if fs.NArg() != 1 {
			return fmt.Errorf("formulas %s: expected one formula id", action)
		}
		parsed, err := strconv.Atoi(fs.Arg(0))
		if err != nil || parsed <= 0 {
			return fmt.Errorf("formulas %s: invalid formula id %q", action, fs.Arg(0))
		}
		id = parsed
	}

	client := a.client()
	token, err := a.token(ctx, client)
	if err != nil {
		return err
	}

	switch action {
	case "list":
		formulas, err := client.ListFormulas(ctx, token)
		if err != nil {
			return err
		}
		return output.FormulaList(a.stdout, formulas)
	case "show":
		f, err := client.GetFormula(ctx, token, id)
		if err != nil {
			return err
		}
		return output.FormulaDetail(a.stdout, f)
	case "process":
		projection, err := client.ProcessFormula(ctx, token, id, *first, *last)
		if err != nil {
			return err
		}
		return output.ProjectionPretty(a.stdout, projection)
	case "csv":
		data, err := client.ExportCSV(ctx, token, id, *first, *last)
		if err != nil {
			return err
		}
		if *outFile != "" {
			return os.WriteFile(*outFile, data, 0644)
		}
		_, err = a.stdout.Write(data)
		return err
	case "delete":
		if err := client.DeleteFormula(ctx, token, id); err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "Deleted formula %d\n", id)
		return err
	default:
		return fmt.Errorf("formulas: unknown action %q", action)
	}
}

func (a *app) runDashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	first, last := monthFlags(fs)
	concurrency := fs.Int("concurrency", constants.DefaultDashboardConcurrency, "formulas processed at once")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := a.client()
	token, err := a.token(ctx, client)
	if err != nil {
		return err
	}

	result, err := dashboard.NewService(client, a.logger, *concurrency).Load(ctx, token, *first, *last)
	if err != nil {
		return err
	}
	return output.DashboardPretty(a.stdout, result)
}
