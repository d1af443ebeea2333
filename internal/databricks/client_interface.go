package databricks

import "context"

// WorkspaceClient is an interface for Databricks workspace API operations
// This interface allows for easy mocking in tests
type WorkspaceClient interface {
	// Identity
	CurrentUser(ctx context.Context) (*User, error)

	// Unity catalog
	ListTables(ctx context.Context, catalog, schema string) ([]TableInfo, error)

	// Statement execution
	ExecuteStatement(ctx context.Context, statement string) (*StatementResponse, error)
	GetStatement(ctx context.Context, statementID string) (*StatementResponse, error)
	CancelStatement(ctx context.Context, statementID string) error
	ExecuteStatementAndWait(ctx context.Context, statement string) (*StatementResponse, error)

	// Session lifecycle
	Close()
}

// Verify that Client implements WorkspaceClient interface
var _ WorkspaceClient = (*Client)(nil)
