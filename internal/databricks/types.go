package databricks

// Statement execution states reported by the SQL statement API
const (
	StatePending   = "PENDING"
	StateRunning   = "RUNNING"
	StateSucceeded = "SUCCEEDED"
	StateFailed    = "FAILED"
	StateCanceled  = "CANCELED"
	StateClosed    = "CLOSED"
)

// IsTerminalState reports whether the warehouse will not advance the
// statement any further
func IsTerminalState(state string) bool {
	switch state {
	case StateSucceeded, StateFailed, StateCanceled, StateClosed:
		return true
	}
	return false
}

// StatementRequest is the submit payload for the statement execution API
type StatementRequest struct {
	Statement     string `json:"statement"`
	WarehouseID   string `json:"warehouse_id"`
	WaitTimeout   string `json:"wait_timeout,omitempty"`
	OnWaitTimeout string `json:"on_wait_timeout,omitempty"`
	Format        string `json:"format,omitempty"`
	Disposition   string `json:"disposition,omitempty"`
}

// StatementError carries the service-side failure detail for a statement
type StatementError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// StatementStatus is the execution state of a statement
type StatementStatus struct {
	State string          `json:"state"`
	Error *StatementError `json:"error,omitempty"`
}

// StatementResult holds inline result rows in JSON_ARRAY format. Every cell
// arrives as a string regardless of the column type.
type StatementResult struct {
	RowCount  int64      `json:"row_count"`
	DataArray [][]string `json:"data_array"`
}

// StatementResponse is the statement execution API response shape
type StatementResponse struct {
	StatementID string           `json:"statement_id"`
	Status      StatementStatus  `json:"status"`
	Result      *StatementResult `json:"result,omitempty"`
}

// ErrorMessage returns the service-side failure message, or an empty string
// when the service did not provide one
func (r *StatementResponse) ErrorMessage() string {
	if r.Status.Error != nil {
		return r.Status.Error.Message
	}
	return ""
}

// TableInfo describes a table in the unity catalog listing
type TableInfo struct {
	Name        string `json:"name"`
	CatalogName string `json:"catalog_name"`
	SchemaName  string `json:"schema_name"`
	TableType   string `json:"table_type"`
	FullName    string `json:"full_name,omitempty"`
}

// ListTablesResponse is one page of the unity catalog tables listing
type ListTablesResponse struct {
	Tables        []TableInfo `json:"tables"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// User is the SCIM identity of the authenticated principal
type User struct {
	ID          string `json:"id"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName,omitempty"`
	Active      bool   `json:"active"`
}
