// Package apiclient talks to the remote formula API. Every call is a single
// request: there are no retries and no caching.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/iwvelando/taxsim/internal/metrics"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.uber.org/zap"
)

const (
	// FallbackMessage is used when an error response names no cause.
	FallbackMessage = "Erro na API"

	// UnreadableMessage is used when an error response body is not JSON.
	UnreadableMessage = "Erro desconhecido na resposta da API"
)

// ErrInvalidRange is returned before any request when a month range is invalid.
var ErrInvalidRange = errors.New("invalid month range")

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client is a remote formula API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New builds a Client for baseURL. A non-positive timeout uses
// constants.DefaultAPITimeout.
func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = constants.DefaultAPITimeout
	}
	if baseURL == "" {
		baseURL = constants.DefaultAPIBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (formula.Auth, error) {
	body := map[string]string{"email": email, "password": password}
	raw, err := c.do(ctx, http.MethodPost, "/api/users/login", nil, body, "")
	if err != nil {
		return formula.Auth{}, err
	}
	return formula.DecodeAuth(raw)
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, name, email, password string, role formula.Role) (formula.Auth, error) {
	if role == "" {
		role = formula.RoleDefault
	}
	if !role.Valid() {
		return formula.Auth{}, fmt.Errorf("unknown role %q", role)
	}
	body := map[string]string{"name": name, "email": email, "password": password, "role": string(role)}
	raw, err := c.do(ctx, http.MethodPost, "/api/users", nil, body, "")
	if err != nil {
		return formula.Auth{}, err
	}
	return formula.DecodeAuth(raw)
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (formula.User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, token)
	if err != nil {
		return formula.User{}, err
	}
	return formula.DecodeUser(raw)
}

// ListFormulas returns every formula of the token's user.
func (c *Client) ListFormulas(ctx context.Context, token string) ([]formula.Formula, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/formulas", nil, nil, token)
	if err != nil {
		return nil, err
	}
	return formula.DecodeFormulas(raw)
}

// GetFormula returns one formula.
func (c *Client) GetFormula(ctx context.Context, token string, id int) (formula.Formula, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/formulas/"+strconv.Itoa(id), nil, nil, token)
	if err != nil {
		return formula.Formula{}, err
	}
	return formula.DecodeFormula(raw)
}

// CreateFormula creates a formula from a draft.
func (c *Client) CreateFormula(ctx context.Context, token string, draft formula.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPost, "/api/formulas", nil, draft, token)
	return err
}

// DeleteFormula deletes a formula.
func (c *Client) DeleteFormula(ctx context.Context, token string, id int) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/formulas/"+strconv.Itoa(id), nil, nil, token)
	return err
}

// CreateTax adds a tax rule to a formula.
func (c *Client) CreateTax(ctx context.Context, token string, formulaID int, tax formula.Tax) error {
	if err := tax.Validate(); err != nil {
		return err
	}
	tax.ID = 0
	tax.FormulaID = formulaID
	_, err := c.do(ctx, http.MethodPost, "/api/taxes", nil, tax, token)
	return err
}

// UpdateTax replaces a tax rule's window, factor, type and base.
func (c *Client) UpdateTax(ctx context.Context, token string, id int, tax formula.Tax) error {
	if err := tax.Validate(); err != nil {
		return err
	}
	tax.ID = 0
	tax.FormulaID = 0
	_, err := c.do(ctx, http.MethodPut, "/api/taxes/"+strconv.Itoa(id), nil, tax, token)
	return err
}

// DeleteTax deletes a tax rule.
func (c *Client) DeleteTax(ctx context.Context, token string, id int) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/taxes/"+strconv.Itoa(id), nil, nil, token)
	return err
}

// UpdateInvestment replaces an investment's amount, factor and type.
func (c *Client) UpdateInvestment(ctx context.Context, token string, id int, investment formula.Investment) error {
	if err := investment.Validate(); err != nil {
		return err
	}
	investment.ID = 0
	investment.FormulaID = 0
	_, err := c.do(ctx, http.MethodPut, "/api/investments/"+strconv.Itoa(id), nil, investment, token)
	return err
}

// ProcessFormula asks the API to project a formula over [first, last] months.
func (c *Client) ProcessFormula(ctx context.Context, token string, id, first, last int) (formula.Projection, error) {
	if err := validation.ValidateMonthRange(first, last); err != nil {
		return formula.Projection{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	query := monthQuery(first, last)
	query.Set("id", strconv.Itoa(id))

	raw, err := c.do(ctx, http.MethodPost, "/api/formulas/process", query, struct{}{}, token)
	if err != nil {
		return formula.Projection{}, err
	}
	return formula.NormalizeProjection(raw)
}

// ExportCSV returns the API's CSV rendering of a formula projection.
func (c *Client) ExportCSV(ctx context.Context, token string, id, first, last int) ([]byte, error) {
	if err := validation.ValidateMonthRange(first, last); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return c.do(ctx, http.MethodGet, "/api/formulas/csv/"+strconv.Itoa(id), monthQuery(first, last), nil, token)
}

func monthQuery(first, last int) url.Values {
	query := url.Values{}
	query.Set("firstMonth", strconv.Itoa(first))
	query.Set("lastMonth", strconv.Itoa(last))
	return query
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-store")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APICalls.WithLabelValues(method, metrics.StatusLabel(0)).Inc()
		c.logger.Warn("api request failed",
			zap.String("op", "apiclient.do"),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.APICalls.WithLabelValues(method, metrics.StatusLabel(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	c.logger.Debug("api request completed",
		zap.String("op", "apiclient.do"),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage picks "msg", then "error", from an error body.
func errorMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return UnreadableMessage
	}
	for _, key := range []string{"msg", "error"} {
		if text, ok := body[key].(string); ok && text != "" {
			return text
		}
	}
	return FallbackMessage
}

// StatusOf returns the remote status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
