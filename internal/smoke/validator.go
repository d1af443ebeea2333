package smoke

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/redhat-data-and-ai/smokecheck/internal/auth"
	"github.com/redhat-data-and-ai/smokecheck/internal/config"
	"github.com/redhat-data-and-ai/smokecheck/internal/databricks"
	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
	"github.com/redhat-data-and-ai/smokecheck/internal/logging"
)

// Validator executes the deployment smoke check: authenticate, confirm the
// table exists, confirm it holds enough rows
type Validator struct {
	cfg    *config.Config
	logger *logging.Logger

	// newClient builds the workspace session. Tests swap in a mock.
	newClient func(*config.Config, auth.Strategy) databricks.WorkspaceClient
}

// New creates a validator for the given configuration
func New(cfg *config.Config) *Validator {
	return &Validator{
		cfg:    cfg,
		logger: logging.NewLogger(logging.GetLogLevel(cfg.LogLevel), "validator"),
		newClient: func(cfg *config.Config, strategy auth.Strategy) databricks.WorkspaceClient {
			return databricks.NewClient(cfg, strategy)
		},
	}
}

// Run loads configuration, runs the validation flow, and reports the
// outcome. All failure paths come back as a Result; nothing panics and no
// session outlives the call.
func Run(ctx context.Context, configPath string) *Result {
	runID := uuid.NewString()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadWithFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		appErr := errors.Classify(err, errors.ErrConfigValidation, "Configuration load failed")
		logging.RunError(runID, "Configuration load failed", appErr)
		return &Result{
			RunID:    runID,
			Outcome:  OutcomeConnectionFailure,
			RowCount: -1,
			Reason:   failureReason(appErr),
			Err:      appErr,
		}
	}

	logging.InitLogger(cfg.LogLevel, "smokecheck")
	return New(cfg).RunWithID(ctx, runID)
}

// RunWithID runs the validation flow under an externally chosen run id
func (v *Validator) RunWithID(ctx context.Context, runID string) *Result {
	start := time.Now()
	result := &Result{
		RunID:    runID,
		Table:    v.cfg.Check.Table,
		RowCount: -1,
		MinRows:  v.cfg.Check.MinRows,
	}

	v.logger.RunInfo(runID, "Starting deployment smoke check",
		zap.String("host", v.cfg.Workspace.Host),
		zap.String("table", v.cfg.Check.Table),
		zap.String("warehouse_id", v.cfg.Workspace.WarehouseID),
		zap.String("auth_mode", v.cfg.AuthModeDescription()),
		zap.Int64("min_rows", v.cfg.Check.MinRows))

	v.run(ctx, runID, result)

	result.Duration = time.Since(start)
	v.logResult(runID, result)
	return result
}

// run executes the sequential steps, recording the first failure on result
func (v *Validator) run(ctx context.Context, runID string, result *Result) {
	strategy, err := auth.FromConfig(v.cfg)
	if err != nil {
		v.fail(result, errors.Classify(err, errors.ErrAuthFailed, "No authentication strategy configured"))
		return
	}

	client := v.newClient(v.cfg, strategy)
	defer client.Close()

	// Step 1: authenticate and confirm the workspace answers
	v.logger.RunInfo(runID, "Step 1: Authenticating to the workspace",
		zap.String("step", "authenticate"),
		zap.String("strategy", strategy.Name()))

	user, err := client.CurrentUser(ctx)
	if err != nil {
		v.fail(result, errors.Classify(err, errors.ErrAuthFailed, "Failed to authenticate to the workspace"))
		return
	}
	result.User = user.UserName
	v.logger.RunInfo(runID, "Successfully connected to Databricks",
		zap.String("step", "authenticate"),
		zap.String("user", user.UserName))

	tableID, err := databricks.ParseTableID(v.cfg.Check.Table, v.cfg.Check.DefaultCatalog)
	if err != nil {
		v.fail(result, errors.Classify(err, errors.ErrInvalidIdentifier, "invalid table identifier format"))
		return
	}
	result.Table = tableID.String()

	// Step 2: confirm the table exists in its catalog.schema scope
	if !v.cfg.Check.SkipExistence {
		v.logger.RunInfo(runID, "Step 2: Checking table exists",
			zap.String("step", "existence"),
			zap.String("table", tableID.String()))

		exists, err := v.tableExists(ctx, client, tableID)
		if err != nil {
			v.fail(result, errors.Classify(err, errors.ErrQueryFailed, "Table existence check failed"))
			return
		}
		if !exists {
			result.Outcome = OutcomeValidationFailure
			result.Reason = fmt.Sprintf("table %s does not exist", tableID.String())
			return
		}
		v.logger.RunInfo(runID, "Table exists",
			zap.String("step", "existence"),
			zap.String("table", tableID.String()))
	} else {
		v.logger.RunInfo(runID, "Step 2: Skipping existence check",
			zap.String("step", "existence"))
	}

	// Step 3: count rows on the configured warehouse
	v.logger.RunInfo(runID, "Step 3: Counting rows",
		zap.String("step", "count"),
		zap.String("table", tableID.String()),
		zap.Duration("timeout", v.cfg.QueryTimeout()))

	count, err := v.countRows(ctx, client, tableID)
	if err != nil {
		v.fail(result, errors.Classify(err, errors.ErrQueryFailed, "Counting query did not complete"))
		return
	}
	result.RowCount = count

	v.logger.RunInfo(runID, fmt.Sprintf("Table %s contains %d rows", tableID.String(), count),
		zap.String("step", "count"),
		zap.Int64("row_count", count),
		zap.Int64("min_rows", v.cfg.Check.MinRows))

	if count < v.cfg.Check.MinRows {
		result.Outcome = OutcomeValidationFailure
		result.Reason = fmt.Sprintf("table %s contains %d rows, below the minimum of %d",
			tableID.String(), count, v.cfg.Check.MinRows)
		return
	}

	result.Outcome = OutcomeSuccess
}

// tableExists lists the catalog.schema scope and checks membership by exact
// name. A missing catalog or schema means the table cannot exist there.
func (v *Validator) tableExists(ctx context.Context, client databricks.WorkspaceClient, id databricks.TableID) (bool, error) {
	tables, err := client.ListTables(ctx, id.Catalog, id.Schema)
	if err != nil {
		if stderrors.Is(err, databricks.ErrScopeNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, table := range tables {
		if table.Name == id.Name {
			return true, nil
		}
	}
	return false, nil
}

// countRows runs the counting statement bounded by the configured timeout
// and parses the single aggregate cell
func (v *Validator) countRows(ctx context.Context, client databricks.WorkspaceClient, id databricks.TableID) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, v.cfg.QueryTimeout())
	defer cancel()

	resp, err := client.ExecuteStatementAndWait(queryCtx, databricks.CountRowsStatement(id))
	if err != nil {
		return -1, err
	}

	if resp.Status.State != databricks.StateSucceeded {
		return -1, errors.NewStatementError(resp.Status.State, resp.ErrorMessage()).WithTable(id.String())
	}

	if resp.Result == nil || len(resp.Result.DataArray) == 0 || len(resp.Result.DataArray[0]) == 0 {
		return -1, errors.NewError(errors.ErrMalformedResult,
			"counting query succeeded but returned no result rows").WithTable(id.String())
	}

	raw := resp.Result.DataArray[0][0]
	count, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil || count < 0 {
		return -1, errors.NewError(errors.ErrMalformedResult,
			fmt.Sprintf("counting query returned %q, expected a non-negative integer", raw)).WithTable(id.String())
	}

	return count, nil
}

// fail records a step failure on the result
func (v *Validator) fail(result *Result, err *errors.AppError) {
	result.Outcome = outcomeForError(err)
	result.Reason = failureReason(err)
	result.Err = err
}

// failureReason flattens an AppError into the single-line summary text
func failureReason(err *errors.AppError) string {
	if err.Details != "" {
		return fmt.Sprintf("%s: %s", err.Message, err.Details)
	}
	if err.Cause != nil {
		return fmt.Sprintf("%s: %v", err.Message, err.Cause)
	}
	return err.Message
}

// logResult emits the per-run closing log line
func (v *Validator) logResult(runID string, result *Result) {
	fields := []zap.Field{
		zap.String("outcome", string(result.Outcome)),
		zap.String("table", result.Table),
		zap.Int64("row_count", result.RowCount),
		zap.Duration("duration", result.Duration),
		zap.Int("exit_code", result.ExitCode()),
	}

	if result.Outcome == OutcomeSuccess {
		v.logger.RunInfo(runID, "Smoke check passed", fields...)
		return
	}
	v.logger.RunError(runID, "Smoke check failed", result.Err, fields...)
}
