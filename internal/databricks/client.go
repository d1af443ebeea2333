package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/redhat-data-and-ai/smokecheck/internal/auth"
	"github.com/redhat-data-and-ai/smokecheck/internal/config"
	"github.com/redhat-data-and-ai/smokecheck/internal/logging"
)

const (
	// submitWaitTimeout is the service-side wait on statement submission.
	// The API caps it at 50s; longer runs continue asynchronously and are
	// polled below.
	submitWaitTimeout = "30s"

	// defaultPollInterval paces the polling loop for statements that outlive
	// the service-side wait
	defaultPollInterval = 2 * time.Second

	// requestTimeout bounds a single HTTP exchange. It must exceed
	// submitWaitTimeout, which the submit call blocks on server-side.
	requestTimeout = 60 * time.Second

	// cancelTimeout bounds the best-effort cancel fired when the statement
	// context ends before the statement does
	cancelTimeout = 5 * time.Second
)

// ErrScopeNotFound reports that the catalog or schema being listed does not
// exist in the workspace
var ErrScopeNotFound = stderrors.New("catalog or schema not found")

// Client handles Databricks workspace API operations
type Client struct {
	config config.WorkspaceConfig
	http   *http.Client
	tokens oauth2.TokenSource

	// PollInterval paces statement polling. Tests shorten it.
	PollInterval time.Duration
}

// buildHTTPClient creates the transport with retry support. Retries live
// only at this level; the validation flow above runs every step exactly once.
func buildHTTPClient(maxRetries int) *http.Client {
	rcClient := retryablehttp.NewClient()
	rcClient.RetryMax = maxRetries
	rcClient.RetryWaitMin = 1 * time.Second
	rcClient.RetryWaitMax = 10 * time.Second
	rcClient.Logger = nil

	httpClient := rcClient.StandardClient()
	httpClient.Timeout = requestTimeout

	return httpClient
}

// NewClient creates a new workspace API client. No network traffic happens
// until the first call; token acquisition is lazy and goes through the same
// retrying transport.
func NewClient(cfg *config.Config, strategy auth.Strategy) *Client {
	httpClient := buildHTTPClient(cfg.Workspace.MaxRetries)

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		config:       cfg.Workspace,
		http:         httpClient,
		tokens:       strategy.TokenSource(tokenCtx),
		PollInterval: defaultPollInterval,
	}
}

// authorize attaches the bearer token to a request, acquiring or refreshing
// it as needed
func (c *Client) authorize(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to acquire workspace token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// CurrentUser returns the identity behind the session's credentials
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	endpoint := fmt.Sprintf("%s/api/2.0/preview/scim/v2/Me", strings.TrimRight(c.config.Host, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case 200:
		var user User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode identity response: %w", err)
		}
		return &user, nil
	case 401:
		return nil, fmt.Errorf("identity check failed: invalid or expired credentials")
	case 403:
		return nil, fmt.Errorf("identity check failed: principal has no workspace access")
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity check failed with status %d: %s", resp.StatusCode, string(body))
	}
}

// ListTables returns every table in the catalog.schema scope, following
// pagination until the listing is complete. A missing catalog or schema is
// reported as ErrScopeNotFound so callers can treat it as an absent table
// rather than a broken workspace.
func (c *Client) ListTables(ctx context.Context, catalog, schema string) ([]TableInfo, error) {
	var tables []TableInfo
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("catalog_name", catalog)
		query.Set("schema_name", schema)
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		endpoint := fmt.Sprintf("%s/api/2.1/unity-catalog/tables?%s",
			strings.TrimRight(c.config.Host, "/"), query.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if err := c.authorize(req); err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("table listing request failed: %w", err)
		}

		var page ListTablesResponse
		switch resp.StatusCode {
		case 200:
			if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("failed to decode table listing response: %w", err)
			}
			_ = resp.Body.Close()
		case 401:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("table listing failed: invalid or expired credentials")
		case 403:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("table listing failed: principal cannot read %s.%s", catalog, schema)
		case 404:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: %s.%s", ErrScopeNotFound, catalog, schema)
		default:
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("table listing failed with status %d: %s", resp.StatusCode, string(body))
		}

		tables = append(tables, page.Tables...)
		if page.NextPageToken == "" {
			return tables, nil
		}
		pageToken = page.NextPageToken
	}
}

// ExecuteStatement submits a statement to the configured SQL warehouse.
// The call waits server-side up to submitWaitTimeout and then returns,
// possibly with the statement still running.
func (c *Client) ExecuteStatement(ctx context.Context, statement string) (*StatementResponse, error) {
	endpoint := fmt.Sprintf("%s/api/2.0/sql/statements", strings.TrimRight(c.config.Host, "/"))

	payload := StatementRequest{
		Statement:     statement,
		WarehouseID:   c.config.WarehouseID,
		WaitTimeout:   submitWaitTimeout,
		OnWaitTimeout: "CONTINUE",
		Format:        "JSON_ARRAY",
		Disposition:   "INLINE",
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statement payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create statement request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("statement submission failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case 200:
		var statementResp StatementResponse
		if err := json.NewDecoder(resp.Body).Decode(&statementResp); err != nil {
			return nil, fmt.Errorf("failed to decode statement response: %w", err)
		}
		return &statementResp, nil
	case 400:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("statement rejected: %s", string(body))
	case 401:
		return nil, fmt.Errorf("statement submission failed: invalid or expired credentials")
	case 403:
		return nil, fmt.Errorf("statement submission failed: principal cannot use warehouse %s", c.config.WarehouseID)
	case 404:
		return nil, fmt.Errorf("statement submission failed: warehouse %s not found", c.config.WarehouseID)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("statement submission failed with status %d: %s", resp.StatusCode, string(body))
	}
}

// GetStatement fetches the current state of a submitted statement
func (c *Client) GetStatement(ctx context.Context, statementID string) (*StatementResponse, error) {
	endpoint := fmt.Sprintf("%s/api/2.0/sql/statements/%s",
		strings.TrimRight(c.config.Host, "/"), url.PathEscape(statementID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("statement poll failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case 200:
		var statementResp StatementResponse
		if err := json.NewDecoder(resp.Body).Decode(&statementResp); err != nil {
			return nil, fmt.Errorf("failed to decode statement poll response: %w", err)
		}
		return &statementResp, nil
	case 404:
		return nil, fmt.Errorf("statement poll failed: statement %s not found", statementID)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("statement poll failed with status %d: %s", resp.StatusCode, string(body))
	}
}

// CancelStatement asks the warehouse to stop a running statement
func (c *Client) CancelStatement(ctx context.Context, statementID string) error {
	endpoint := fmt.Sprintf("%s/api/2.0/sql/statements/%s/cancel",
		strings.TrimRight(c.config.Host, "/"), url.PathEscape(statementID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("statement cancel failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("statement cancel failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ExecuteStatementAndWait submits a statement and polls until it reaches a
// terminal state or ctx ends. When ctx ends first, the statement is
// best-effort cancelled so it does not keep burning warehouse time.
func (c *Client) ExecuteStatementAndWait(ctx context.Context, statement string) (*StatementResponse, error) {
	resp, err := c.ExecuteStatement(ctx, statement)
	if err != nil {
		return nil, err
	}

	for !IsTerminalState(resp.Status.State) {
		select {
		case <-ctx.Done():
			c.cancelDetached(resp.StatementID)
			return nil, fmt.Errorf("statement %s did not finish: %w", resp.StatementID, ctx.Err())
		case <-time.After(c.PollInterval):
		}

		resp, err = c.GetStatement(ctx, resp.StatementID)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// cancelDetached cancels a statement on a fresh context, for use when the
// caller's context is already dead
func (c *Client) cancelDetached(statementID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()

	if err := c.CancelStatement(ctx, statementID); err != nil {
		logging.Warn("Failed to cancel statement %s: %v", statementID, err)
	}
}

// Close releases the session's pooled connections. Safe to call on every
// exit path, including after failures.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
