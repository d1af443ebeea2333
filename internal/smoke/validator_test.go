package smoke

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/smokecheck/internal/auth"
	"github.com/redhat-data-and-ai/smokecheck/internal/config"
	"github.com/redhat-data-and-ai/smokecheck/internal/databricks"
	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

// mockClient is a hand mock of the workspace client. Unset hooks report a
// test failure so each test declares exactly the calls it expects.
type mockClient struct {
	t *testing.T

	currentUser    func(ctx context.Context) (*databricks.User, error)
	listTables     func(ctx context.Context, catalog, schema string) ([]databricks.TableInfo, error)
	executeAndWait func(ctx context.Context, statement string) (*databricks.StatementResponse, error)

	closed int
}

var _ databricks.WorkspaceClient = (*mockClient)(nil)

func (m *mockClient) CurrentUser(ctx context.Context) (*databricks.User, error) {
	if m.currentUser == nil {
		m.t.Fatal("unexpected CurrentUser call")
	}
	return m.currentUser(ctx)
}

func (m *mockClient) ListTables(ctx context.Context, catalog, schema string) ([]databricks.TableInfo, error) {
	if m.listTables == nil {
		m.t.Fatal("unexpected ListTables call")
	}
	return m.listTables(ctx, catalog, schema)
}

func (m *mockClient) ExecuteStatementAndWait(ctx context.Context, statement string) (*databricks.StatementResponse, error) {
	if m.executeAndWait == nil {
		m.t.Fatal("unexpected ExecuteStatementAndWait call")
	}
	return m.executeAndWait(ctx, statement)
}

func (m *mockClient) ExecuteStatement(_ context.Context, _ string) (*databricks.StatementResponse, error) {
	m.t.Fatal("unexpected ExecuteStatement call")
	return nil, nil
}

func (m *mockClient) GetStatement(_ context.Context, _ string) (*databricks.StatementResponse, error) {
	m.t.Fatal("unexpected GetStatement call")
	return nil, nil
}

func (m *mockClient) CancelStatement(_ context.Context, _ string) error {
	m.t.Fatal("unexpected CancelStatement call")
	return nil
}

func (m *mockClient) Close() {
	m.closed++
}

func testConfig() *config.Config {
	return &config.Config{
		Workspace: config.WorkspaceConfig{
			Host:        "https://adb-123.azuredatabricks.net",
			WarehouseID: "warehouse-1",
			MaxRetries:  0,
		},
		Auth: config.AuthConfig{Token: "test-token"},
		Check: config.CheckConfig{
			Table:          "corporate.sales.orders",
			DefaultCatalog: config.DefaultCatalog,
			MinRows:        1,
			TimeoutSeconds: 5,
		},
		LogLevel: "error",
	}
}

func newTestValidator(t *testing.T, cfg *config.Config, mock *mockClient) *Validator {
	t.Helper()
	mock.t = t

	v := New(cfg)
	v.newClient = func(_ *config.Config, _ auth.Strategy) databricks.WorkspaceClient {
		return mock
	}
	return v
}

// authenticated returns a mock that passes the identity check
func authenticated(mock *mockClient) *mockClient {
	mock.currentUser = func(_ context.Context) (*databricks.User, error) {
		return &databricks.User{UserName: "svc-smoketest@example.com", Active: true}, nil
	}
	return mock
}

func countResponse(cell string) *databricks.StatementResponse {
	return &databricks.StatementResponse{
		StatementID: "stmt-1",
		Status:      databricks.StatementStatus{State: databricks.StateSucceeded},
		Result:      &databricks.StatementResult{RowCount: 1, DataArray: [][]string{{cell}}},
	}
}

func ordersListing(_ context.Context, catalog, schema string) ([]databricks.TableInfo, error) {
	return []databricks.TableInfo{
		{Name: "orders", CatalogName: catalog, SchemaName: schema},
		{Name: "refunds", CatalogName: catalog, SchemaName: schema},
	}, nil
}

func TestRun_Success(t *testing.T) {
	mock := authenticated(&mockClient{
		listTables: ordersListing,
		executeAndWait: func(_ context.Context, statement string) (*databricks.StatementResponse, error) {
			assert.Equal(t, "SELECT COUNT(*) AS row_count FROM corporate.sales.orders LIMIT 1", statement)
			return countResponse("42"), nil
		},
	})

	result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, 0, result.ExitCode())
	assert.Equal(t, int64(42), result.RowCount)
	assert.Equal(t, "svc-smoketest@example.com", result.User)
	assert.Equal(t, "corporate.sales.orders", result.Table)
	assert.Equal(t, "SUCCESS: table corporate.sales.orders contains 42 rows (minimum 1)", result.Summary())
	assert.Equal(t, 1, mock.closed)
}

func TestRun_TableAbsent(t *testing.T) {
	mock := authenticated(&mockClient{
		listTables: func(_ context.Context, catalog, schema string) ([]databricks.TableInfo, error) {
			return []databricks.TableInfo{{Name: "refunds", CatalogName: catalog, SchemaName: schema}}, nil
		},
	})

	result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeValidationFailure, result.Outcome)
	assert.Equal(t, 1, result.ExitCode())
	assert.Contains(t, result.Summary(), "does not exist")
	assert.Equal(t, 1, mock.closed)
}

func TestRun_ScopeNotFoundMeansTableAbsent(t *testing.T) {
	mock := authenticated(&mockClient{
		listTables: func(_ context.Context, catalog, schema string) ([]databricks.TableInfo, error) {
			return nil, fmt.Errorf("%w: %s.%s", databricks.ErrScopeNotFound, catalog, schema)
		},
	})

	result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeValidationFailure, result.Outcome)
	assert.Equal(t, 1, result.ExitCode())
	assert.Contains(t, result.Summary(), "does not exist")
}

func TestRun_ZeroRowsBelowDefaultMinimum(t *testing.T) {
	mock := authenticated(&mockClient{
		listTables: ordersListing,
		executeAndWait: func(_ context.Context, _ string) (*databricks.StatementResponse, error) {
			return countResponse("0"), nil
		},
	})

	result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeValidationFailure, result.Outcome)
	assert.Equal(t, 1, result.ExitCode())
	assert.Equal(t, int64(0), result.RowCount)
	assert.Contains(t, result.Summary(), "below the minimum of 1")
}

func TestRun_ZeroMinimumAcceptsEmptyTable(t *testing.T) {
	cfg := testConfig()
	cfg.Check.MinRows = 0

	mock := authenticated(&mockClient{
		listTables: ordersListing,
		executeAndWait: func(_ context.Context, _ string) (*databricks.StatementResponse, error) {
			return countResponse("0"), nil
		},
	})

	result := newTestValidator(t, cfg, mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, 0, result.ExitCode())
}

func TestRun_AuthFailureClosesSession(t *testing.T) {
	mock := &mockClient{
		currentUser: func(_ context.Context) (*databricks.User, error) {
			return nil, fmt.Errorf("identity request failed: connection refused")
		},
	}

	result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeConnectionFailure, result.Outcome)
	assert.Equal(t, 2, result.ExitCode())
	require.NotNil(t, result.Err)
	assert.Equal(t, errors.KindAuth, result.Err.Kind())
	assert.Equal(t, 1, mock.closed, "the session must be released on the failure path")
}

func TestRun_InvalidIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{name: "single part", table: "onlytable"},
		{name: "four parts", table: "a.b.c.d"},
		{name: "empty segment", table: "catalog..orders"},
		{name: "sql injection attempt", table: "sales.orders; DROP TABLE users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Check.Table = tt.table

			// Identifier parsing fails before any catalog or warehouse call
			mock := authenticated(&mockClient{})

			result := newTestValidator(t, cfg, mock).RunWithID(context.Background(), "run-1")

			assert.Equal(t, OutcomeValidationFailure, result.Outcome)
			assert.Equal(t, 1, result.ExitCode())
			require.NotNil(t, result.Err)
			assert.Equal(t, errors.ErrInvalidIdentifier, result.Err.Code)
			assert.Contains(t, result.Summary(), "invalid table identifier format")
		})
	}
}

func TestRun_TwoPartIdentifierDefaultsCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.Check.Table = "sales.orders"

	var listedCatalog string
	mock := authenticated(&mockClient{
		listTables: func(_ context.Context, catalog, schema string) ([]databricks.TableInfo, error) {
			listedCatalog = catalog
			assert.Equal(t, "sales", schema)
			return []databricks.TableInfo{{Name: "orders"}}, nil
		},
		executeAndWait: func(_ context.Context, statement string) (*databricks.StatementResponse, error) {
			assert.Contains(t, statement, "FROM hive_metastore.sales.orders")
			return countResponse("5"), nil
		},
	})

	result := newTestValidator(t, cfg, mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "hive_metastore", listedCatalog)
	assert.Equal(t, "hive_metastore.sales.orders", result.Table)
}

func TestRun_SkipExistenceGoesStraightToCounting(t *testing.T) {
	cfg := testConfig()
	cfg.Check.SkipExistence = true

	mock := authenticated(&mockClient{
		// listTables left unset: calling it would fail the test
		executeAndWait: func(_ context.Context, _ string) (*databricks.StatementResponse, error) {
			return countResponse("3"), nil
		},
	})

	result := newTestValidator(t, cfg, mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
}

func TestRun_StatementFailureCarriesServiceMessage(t *testing.T) {
	mock := authenticated(&mockClient{
		listTables: ordersListing,
		executeAndWait: func(_ context.Context, _ string) (*databricks.StatementResponse, error) {
			return &databricks.StatementResponse{
				StatementID: "stmt-1",
				Status: databricks.StatementStatus{
					State: databricks.StateFailed,
					Error: &databricks.StatementError{ErrorCode: "QUOTA_EXCEEDED", Message: "warehouse quota exhausted"},
				},
			}, nil
		},
	})

	result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeValidationFailure, result.Outcome)
	assert.Equal(t, 1, result.ExitCode())
	require.NotNil(t, result.Err)
	assert.Equal(t, errors.ErrStatementFailed, result.Err.Code)
	assert.Contains(t, result.Summary(), "warehouse quota exhausted")
}

func TestRun_MalformedCountResults(t *testing.T) {
	tests := []struct {
		name     string
		response *databricks.StatementResponse
	}{
		{
			name: "no result rows",
			response: &databricks.StatementResponse{
				StatementID: "stmt-1",
				Status:      databricks.StatementStatus{State: databricks.StateSucceeded},
			},
		},
		{
			name: "empty data array",
			response: &databricks.StatementResponse{
				StatementID: "stmt-1",
				Status:      databricks.StatementStatus{State: databricks.StateSucceeded},
				Result:      &databricks.StatementResult{DataArray: [][]string{}},
			},
		},
		{name: "non-numeric count", response: countResponse("not-a-number")},
		{name: "negative count", response: countResponse("-5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := authenticated(&mockClient{
				listTables: ordersListing,
				executeAndWait: func(_ context.Context, _ string) (*databricks.StatementResponse, error) {
					return tt.response, nil
				},
			})

			result := newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")

			assert.Equal(t, OutcomeValidationFailure, result.Outcome)
			assert.Equal(t, 1, result.ExitCode())
			require.NotNil(t, result.Err)
			assert.Equal(t, errors.ErrMalformedResult, result.Err.Code)
		})
	}
}

func TestRun_CountTimeoutIsValidationFailure(t *testing.T) {
	mock := authenticated(&mockClient{
		listTables: ordersListing,
		executeAndWait: func(ctx context.Context, _ string) (*databricks.StatementResponse, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("statement stmt-1 did not finish: %w", ctx.Err())
		},
	})

	cfg := testConfig()
	cfg.Check.TimeoutSeconds = 1

	result := newTestValidator(t, cfg, mock).RunWithID(context.Background(), "run-1")

	assert.Equal(t, OutcomeValidationFailure, result.Outcome)
	assert.Equal(t, 1, result.ExitCode())
	require.NotNil(t, result.Err)
	assert.Equal(t, errors.ErrQueryTimeout, result.Err.Code)
	assert.Equal(t, 1, mock.closed)
}

func TestRun_InterruptIsConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mock := authenticated(&mockClient{
		listTables: ordersListing,
		executeAndWait: func(ctx context.Context, _ string) (*databricks.StatementResponse, error) {
			cancel()
			<-ctx.Done()
			return nil, fmt.Errorf("statement stmt-1 did not finish: %w", ctx.Err())
		},
	})

	result := newTestValidator(t, testConfig(), mock).RunWithID(ctx, "run-1")

	assert.Equal(t, OutcomeConnectionFailure, result.Outcome)
	assert.Equal(t, 2, result.ExitCode())
	require.NotNil(t, result.Err)
	assert.Equal(t, errors.ErrInterrupted, result.Err.Code)
	assert.Equal(t, 1, mock.closed, "an interrupt must still release the session")
}

func TestRun_Idempotent(t *testing.T) {
	run := func() *Result {
		mock := authenticated(&mockClient{
			listTables: ordersListing,
			executeAndWait: func(_ context.Context, _ string) (*databricks.StatementResponse, error) {
				return countResponse("42"), nil
			},
		})
		return newTestValidator(t, testConfig(), mock).RunWithID(context.Background(), "run-1")
	}

	first := run()
	second := run()

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.RowCount, second.RowCount)
	assert.Equal(t, first.ExitCode(), second.ExitCode())
	assert.Equal(t, first.Summary(), second.Summary())
}
