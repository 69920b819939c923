package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmasterhq/taskmaster/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER,
		name TEXT NOT NULL,
		role TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_chat_id ON users(chat_id) WHERE chat_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS issues (
		issue_id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		issue_type TEXT NOT NULL DEFAULT '',
		estimation INTEGER NOT NULL DEFAULT 0,
		due_date INTEGER,
		assignee INTEGER NOT NULL DEFAULT 0,
		sprint_id INTEGER,
		team TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0,
		hours_worked INTEGER NOT NULL DEFAULT 0,
		completion_notes TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_issues_assignee ON issues(assignee);

	CREATE TABLE IF NOT EXISTS sprints (
		sprint_id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_date INTEGER,
		end_date INTEGER,
		goal TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS alerts (
		alert_id INTEGER PRIMARY KEY AUTOINCREMENT,
		message TEXT NOT NULL,
		task_id INTEGER,
		task TEXT NOT NULL DEFAULT '',
		project_id INTEGER,
		user_id TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT '',
		scheduled_time INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING'
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// isSQLiteBusy reports whether the error is a SQLite concurrency error that
// warrants a retry.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
}

// execWithRetry runs a write statement, retrying with exponential backoff on
// SQLITE_BUSY. The alert sweep and the webhook handler can both touch the
// alerts table at the same moment.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var res sql.Result
	var err error
	for i := 0; i < maxRetries; i++ {
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if isSQLiteBusy(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Write failed with SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		return nil, err
	}
	return nil, err
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const userColumns = `user_id, chat_id, name, role`

func scanUser(row interface{ Scan(...interface{}) error }) (*domain.User, error) {
	var user domain.User
	var chatID sql.NullInt64
	if err := row.Scan(&user.ID, &chatID, &user.Name, &user.Role); err != nil {
		return nil, err
	}
	user.ChatID = chatID.Int64
	return &user, nil
}

// GetUser retrieves a user by internal ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// GetUserByChatID retrieves a user by external messenger chat ID.
func (s *SQLiteStore) GetUserByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE chat_id = ?`, chatID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer closeRows(rows, "users")

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ListUsers retrieves all users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
}

// ListUsersByRole retrieves users whose role matches, ignoring case.
func (s *SQLiteStore) ListUsersByRole(ctx context.Context, role string) ([]*domain.User, error) {
	return s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? COLLATE NOCASE ORDER BY user_id`, role)
}

// CreateUser inserts a user and assigns its ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO users (chat_id, name, role) VALUES (?, ?, ?)`,
		nullableInt64(user.ChatID), user.Name, user.Role)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user insert id: %w", err)
	}
	created := *user
	created.ID = id
	return &created, nil
}

// UpdateUser replaces the stored fields of an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, user *domain.User) (*domain.User, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE users SET chat_id = ?, name = ?, role = ? WHERE user_id = ?`,
		nullableInt64(user.ChatID), user.Name, user.Role, id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := requireRows(res); err != nil {
		return nil, err
	}
	updated := *user
	updated.ID = id
	return &updated, nil
}

// DeleteUser removes a user.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM users WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRows(res)
}

const issueColumns = `issue_id, title, description, issue_type, estimation,
	due_date, assignee, sprint_id, team, status, hours_worked, completion_notes`

func scanIssue(row interface{ Scan(...interface{}) error }) (*domain.Issue, error) {
	var issue domain.Issue
	var dueDate, sprintID sql.NullInt64
	if err := row.Scan(
		&issue.ID, &issue.Title, &issue.Description, &issue.Type, &issue.Estimation,
		&dueDate, &issue.Assignee, &sprintID, &issue.Team, &issue.Status,
		&issue.HoursWorked, &issue.CompletionNotes,
	); err != nil {
		return nil, err
	}
	if dueDate.Valid {
		issue.DueDate = time.Unix(dueDate.Int64, 0)
	}
	issue.SprintID = sprintID.Int64
	return &issue, nil
}

func issueArgs(issue *domain.Issue) []interface{} {
	var dueDate interface{}
	if !issue.DueDate.IsZero() {
		dueDate = issue.DueDate.Unix()
	}
	return []interface{}{
		issue.Title, issue.Description, issue.Type, issue.Estimation,
		dueDate, issue.Assignee, nullableInt64(issue.SprintID), issue.Team,
		issue.Status, issue.HoursWorked, issue.CompletionNotes,
	}
}

// CreateIssue inserts an issue and assigns its ID.
func (s *SQLiteStore) CreateIssue(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	res, err := s.execWithRetry(ctx, `
		INSERT INTO issues (title, description, issue_type, estimation, due_date,
			assignee, sprint_id, team, status, hours_worked, completion_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issueArgs(issue)...)
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("issue insert id: %w", err)
	}
	created := *issue
	created.ID = id
	return &created, nil
}

// GetIssue retrieves an issue by ID.
func (s *SQLiteStore) GetIssue(ctx context.Context, id int64) (*domain.Issue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE issue_id = ?`, id)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan issue row: %w", err)
	}
	return issue, nil
}

func (s *SQLiteStore) queryIssues(ctx context.Context, query string, args ...interface{}) ([]*domain.Issue, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer closeRows(rows, "issues")

	var issues []*domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

// ListIssues retrieves all issues.
func (s *SQLiteStore) ListIssues(ctx context.Context) ([]*domain.Issue, error) {
	return s.queryIssues(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY issue_id`)
}

// ListIssuesByAssignee retrieves all issues assigned to a user.
func (s *SQLiteStore) ListIssuesByAssignee(ctx context.Context, userID int64) ([]*domain.Issue, error) {
	return s.queryIssues(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE assignee = ? ORDER BY issue_id`, userID)
}

// UpdateIssue replaces the stored fields of an existing issue.
func (s *SQLiteStore) UpdateIssue(ctx context.Context, id int64, issue *domain.Issue) (*domain.Issue, error) {
	args := append(issueArgs(issue), id)
	res, err := s.execWithRetry(ctx, `
		UPDATE issues SET title = ?, description = ?, issue_type = ?, estimation = ?,
			due_date = ?, assignee = ?, sprint_id = ?, team = ?, status = ?,
			hours_worked = ?, completion_notes = ?
		WHERE issue_id = ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	if err := requireRows(res); err != nil {
		return nil, err
	}
	updated := *issue
	updated.ID = id
	return &updated, nil
}

// DeleteIssue removes an issue.
func (s *SQLiteStore) DeleteIssue(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM issues WHERE issue_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	return requireRows(res)
}

const sprintColumns = `sprint_id, start_date, end_date, goal`

func scanSprint(row interface{ Scan(...interface{}) error }) (*domain.Sprint, error) {
	var sprint domain.Sprint
	var start, end sql.NullInt64
	if err := row.Scan(&sprint.ID, &start, &end, &sprint.Goal); err != nil {
		return nil, err
	}
	if start.Valid {
		sprint.StartDate = time.Unix(start.Int64, 0)
	}
	if end.Valid {
		sprint.EndDate = time.Unix(end.Int64, 0)
	}
	return &sprint, nil
}

// CreateSprint inserts a sprint and assigns its ID.
func (s *SQLiteStore) CreateSprint(ctx context.Context, sprint *domain.Sprint) (*domain.Sprint, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO sprints (start_date, end_date, goal) VALUES (?, ?, ?)`,
		nullableTime(sprint.StartDate), nullableTime(sprint.EndDate), sprint.Goal)
	if err != nil {
		return nil, fmt.Errorf("insert sprint: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sprint insert id: %w", err)
	}
	created := *sprint
	created.ID = id
	return &created, nil
}

// GetSprint retrieves a sprint by ID.
func (s *SQLiteStore) GetSprint(ctx context.Context, id int64) (*domain.Sprint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE sprint_id = ?`, id)
	sprint, err := scanSprint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sprint row: %w", err)
	}
	return sprint, nil
}

// ListSprints retrieves all sprints.
func (s *SQLiteStore) ListSprints(ctx context.Context) ([]*domain.Sprint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sprintColumns+` FROM sprints ORDER BY sprint_id`)
	if err != nil {
		return nil, fmt.Errorf("query sprints: %w", err)
	}
	defer closeRows(rows, "sprints")

	var sprints []*domain.Sprint
	for rows.Next() {
		sprint, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint row: %w", err)
		}
		sprints = append(sprints, sprint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sprints: %w", err)
	}
	return sprints, nil
}

// UpdateSprint replaces the stored fields of an existing sprint.
func (s *SQLiteStore) UpdateSprint(ctx context.Context, id int64, sprint *domain.Sprint) (*domain.Sprint, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE sprints SET start_date = ?, end_date = ?, goal = ? WHERE sprint_id = ?`,
		nullableTime(sprint.StartDate), nullableTime(sprint.EndDate), sprint.Goal, id)
	if err != nil {
		return nil, fmt.Errorf("update sprint: %w", err)
	}
	if err := requireRows(res); err != nil {
		return nil, err
	}
	updated := *sprint
	updated.ID = id
	return &updated, nil
}

// DeleteSprint removes a sprint.
func (s *SQLiteStore) DeleteSprint(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM sprints WHERE sprint_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sprint: %w", err)
	}
	return requireRows(res)
}

const alertColumns = `alert_id, message, task_id, task, project_id, user_id,
	priority, scheduled_time, status`

func scanAlert(row interface{ Scan(...interface{}) error }) (*domain.Alert, error) {
	var alert domain.Alert
	var taskID, projectID sql.NullInt64
	var scheduled int64
	if err := row.Scan(
		&alert.ID, &alert.Message, &taskID, &alert.Task, &projectID,
		&alert.UserID, &alert.Priority, &scheduled, &alert.Status,
	); err != nil {
		return nil, err
	}
	alert.TaskID = taskID.Int64
	alert.ProjectID = projectID.Int64
	alert.ScheduledTime = time.Unix(scheduled, 0)
	return &alert, nil
}

// GetAlert retrieves an alert by ID.
func (s *SQLiteStore) GetAlert(ctx context.Context, id int64) (*domain.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE alert_id = ?`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert row: %w", err)
	}
	return alert, nil
}

// ListAlertsByStatus retrieves alerts in the given delivery status.
func (s *SQLiteStore) ListAlertsByStatus(ctx context.Context, status string) ([]*domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE status = ? ORDER BY alert_id`, status)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer closeRows(rows, "alerts")

	var alerts []*domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// SaveAlert inserts or updates an alert.
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *domain.Alert) (*domain.Alert, error) {
	if alert.ID == 0 {
		res, err := s.execWithRetry(ctx, `
			INSERT INTO alerts (message, task_id, task, project_id, user_id,
				priority, scheduled_time, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			alert.Message, nullableInt64(alert.TaskID), alert.Task,
			nullableInt64(alert.ProjectID), alert.UserID, alert.Priority,
			alert.ScheduledTime.Unix(), alert.Status)
		if err != nil {
			return nil, fmt.Errorf("insert alert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("alert insert id: %w", err)
		}
		saved := *alert
		saved.ID = id
		return &saved, nil
	}

	res, err := s.execWithRetry(ctx, `
		UPDATE alerts SET message = ?, task_id = ?, task = ?, project_id = ?,
			user_id = ?, priority = ?, scheduled_time = ?, status = ?
		WHERE alert_id = ?`,
		alert.Message, nullableInt64(alert.TaskID), alert.Task,
		nullableInt64(alert.ProjectID), alert.UserID, alert.Priority,
		alert.ScheduledTime.Unix(), alert.Status, alert.ID)
	if err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if err := requireRows(res); err != nil {
		return nil, err
	}
	saved := *alert
	return &saved, nil
}

// DeleteAlert removes an alert.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM alerts WHERE alert_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return requireRows(res)
}

func requireRows(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "table", what, "error", err)
	}
}
