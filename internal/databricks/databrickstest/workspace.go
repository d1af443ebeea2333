// Package databrickstest provides an in-process fake Databricks workspace
// for client and end-to-end tests. It serves the identity, unity catalog,
// statement execution and Entra token endpoints the smoke check touches.
package databrickstest

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
)

// Table is one table the fake workspace knows about, with its row count
type Table struct {
	Catalog string
	Schema  string
	Name    string
	Rows    int64
}

// statement tracks a submitted statement through its poll lifecycle
type statement struct {
	id           string
	table        *Table
	failState    string
	failMessage  string
	pollsLeft    int
	malformedRow string
}

// Workspace is a fake Databricks workspace on a loopback listener
type Workspace struct {
	t   *testing.T
	app *fiber.App
	url string

	mu          sync.Mutex
	validTokens map[string]bool
	user        string
	tables      []Table
	statements  map[string]*statement
	nextID      int
	requests    int

	// pending makes each new statement report RUNNING for this many polls
	// before finishing
	pending int
	// failState, when set, finishes every statement in that state instead of
	// SUCCEEDED
	failState   string
	failMessage string
	// malformedCount, when set, replaces the aggregate cell of every result
	malformedCount string

	// oauth client credentials the fake token endpoint accepts
	clientID     string
	clientSecret string
	tenantID     string
}

// New starts a fake workspace and registers its shutdown with the test
func New(t *testing.T) *Workspace {
	t.Helper()

	w := &Workspace{
		t:           t,
		user:        "svc-smoketest@example.com",
		validTokens: make(map[string]bool),
		statements:  make(map[string]*statement),
	}

	w.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	w.routes()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open workspace listener: %v", err)
	}
	w.url = "http://" + ln.Addr().String()

	go func() { _ = w.app.Listener(ln) }()
	t.Cleanup(func() { _ = w.app.Shutdown() })

	return w
}

// URL returns the workspace base URL
func (w *Workspace) URL() string {
	return w.url
}

// AllowToken registers a static bearer token the workspace accepts
func (w *Workspace) AllowToken(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.validTokens[token] = true
}

// AllowClientCredentials configures the fake Entra token endpoint to accept
// the given client. Tokens it issues are accepted by the workspace routes.
func (w *Workspace) AllowClientCredentials(tenantID, clientID, clientSecret string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tenantID = tenantID
	w.clientID = clientID
	w.clientSecret = clientSecret
}

// SetUser sets the SCIM identity reported for authenticated calls
func (w *Workspace) SetUser(userName string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.user = userName
}

// AddTable registers a table with the given row count
func (w *Workspace) AddTable(catalog, schema, name string, rows int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tables = append(w.tables, Table{Catalog: catalog, Schema: schema, Name: name, Rows: rows})
}

// SetPendingPolls makes each statement report RUNNING for n polls before
// reaching its terminal state
func (w *Workspace) SetPendingPolls(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = n
}

// FailStatements makes every statement finish in the given terminal state
// with the given service message
func (w *Workspace) FailStatements(state, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failState = state
	w.failMessage = message
}

// SetMalformedCount makes every counting result carry the given cell instead
// of the real aggregate
func (w *Workspace) SetMalformedCount(cell string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.malformedCount = cell
}

// Requests returns how many workspace API calls were served. Token endpoint
// traffic is not counted.
func (w *Workspace) Requests() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requests
}

func (w *Workspace) routes() {
	w.app.Post("/:tenant/oauth2/v2.0/token", w.handleToken)

	api := w.app.Group("/api", w.countRequest, w.requireAuth)
	api.Get("/2.0/preview/scim/v2/Me", w.handleMe)
	api.Get("/2.1/unity-catalog/tables", w.handleListTables)
	api.Post("/2.0/sql/statements", w.handleSubmit)
	api.Get("/2.0/sql/statements/:id", w.handlePoll)
	api.Post("/2.0/sql/statements/:id/cancel", w.handleCancel)
}

func (w *Workspace) countRequest(c *fiber.Ctx) error {
	w.mu.Lock()
	w.requests++
	w.mu.Unlock()
	return c.Next()
}

func (w *Workspace) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	w.mu.Lock()
	ok := token != "" && token != header && w.validTokens[token]
	w.mu.Unlock()

	if !ok {
		return c.Status(401).JSON(fiber.Map{"detail": "invalid or missing bearer token"})
	}
	return c.Next()
}

func (w *Workspace) handleToken(c *fiber.Ctx) error {
	w.mu.Lock()
	tenantID, clientID, clientSecret := w.tenantID, w.clientID, w.clientSecret
	w.mu.Unlock()

	if tenantID == "" || c.Params("tenant") != tenantID {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "error_description": "unknown tenant"})
	}
	if c.FormValue("client_id") != clientID || c.FormValue("client_secret") != clientSecret {
		return c.Status(401).JSON(fiber.Map{"error": "invalid_client", "error_description": "client authentication failed"})
	}
	if c.FormValue("grant_type") != "client_credentials" {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported_grant_type"})
	}

	issued := "issued-" + clientID
	w.mu.Lock()
	w.validTokens[issued] = true
	w.mu.Unlock()

	return c.JSON(fiber.Map{
		"access_token": issued,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (w *Workspace) handleMe(c *fiber.Ctx) error {
	w.mu.Lock()
	user := w.user
	w.mu.Unlock()

	return c.JSON(fiber.Map{
		"id":       "100",
		"userName": user,
		"active":   true,
	})
}

func (w *Workspace) handleListTables(c *fiber.Ctx) error {
	catalog := c.Query("catalog_name")
	schema := c.Query("schema_name")

	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]fiber.Map, 0)
	for _, table := range w.tables {
		if table.Catalog == catalog && table.Schema == schema {
			tables = append(tables, fiber.Map{
				"name":         table.Name,
				"catalog_name": table.Catalog,
				"schema_name":  table.Schema,
				"table_type":   "MANAGED",
				"full_name":    fmt.Sprintf("%s.%s.%s", table.Catalog, table.Schema, table.Name),
			})
		}
	}

	return c.JSON(fiber.Map{"tables": tables})
}

// fromClause extracts the target table from the counting statement
var fromClause = regexp.MustCompile(`FROM\s+([A-Za-z0-9_.]+)`)

func (w *Workspace) handleSubmit(c *fiber.Ctx) error {
	var req struct {
		Statement   string `json:"statement"`
		WarehouseID string `json:"warehouse_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "malformed statement payload"})
	}
	if req.WarehouseID == "" {
		return c.Status(400).JSON(fiber.Map{"message": "warehouse_id is required"})
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	stmt := &statement{
		id:           fmt.Sprintf("stmt-%04d", w.nextID),
		pollsLeft:    w.pending,
		failState:    w.failState,
		failMessage:  w.failMessage,
		malformedRow: w.malformedCount,
	}

	fqn := req.Statement
	if match := fromClause.FindStringSubmatch(req.Statement); match != nil {
		fqn = match[1]
		for i := range w.tables {
			table := &w.tables[i]
			if fqn == fmt.Sprintf("%s.%s.%s", table.Catalog, table.Schema, table.Name) {
				stmt.table = table
				break
			}
		}
	}
	if stmt.table == nil && stmt.failState == "" {
		stmt.failState = "FAILED"
		stmt.failMessage = "[TABLE_OR_VIEW_NOT_FOUND] The table or view `" + fqn + "` cannot be found."
	}

	w.statements[stmt.id] = stmt
	return c.JSON(w.statementResponse(stmt))
}

func (w *Workspace) handlePoll(c *fiber.Ctx) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stmt, ok := w.statements[c.Params("id")]
	if !ok {
		return c.Status(404).JSON(fiber.Map{"message": "statement not found"})
	}
	if stmt.pollsLeft > 0 {
		stmt.pollsLeft--
	}
	return c.JSON(w.statementResponse(stmt))
}

func (w *Workspace) handleCancel(c *fiber.Ctx) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stmt, ok := w.statements[c.Params("id")]
	if !ok {
		return c.Status(404).JSON(fiber.Map{"message": "statement not found"})
	}
	stmt.failState = "CANCELED"
	stmt.pollsLeft = 0
	return c.JSON(fiber.Map{})
}

// statementResponse renders a statement in its current lifecycle position.
// Callers hold w.mu.
func (w *Workspace) statementResponse(stmt *statement) fiber.Map {
	if stmt.pollsLeft > 0 {
		return fiber.Map{
			"statement_id": stmt.id,
			"status":       fiber.Map{"state": "RUNNING"},
		}
	}

	if stmt.failState != "" {
		status := fiber.Map{"state": stmt.failState}
		if stmt.failMessage != "" {
			status["error"] = fiber.Map{"error_code": "ERROR", "message": stmt.failMessage}
		}
		return fiber.Map{"statement_id": stmt.id, "status": status}
	}

	cell := fmt.Sprintf("%d", stmt.table.Rows)
	if stmt.malformedRow != "" {
		cell = stmt.malformedRow
	}

	return fiber.Map{
		"statement_id": stmt.id,
		"status":       fiber.Map{"state": "SUCCEEDED"},
		"result": fiber.Map{
			"row_count":  1,
			"data_array": [][]string{{cell}},
		},
	}
}
