// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/tmasterhq/taskmaster/internal/domain"
)

// ErrNotFound is returned by mutations that target a missing record. Reads
// signal absence with a nil result instead.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for persisting users, issues, sprints and
// alerts.
type Repository interface {
	// GetUser retrieves a user by internal ID. Returns nil if not found.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// GetUserByChatID retrieves a user by external messenger chat ID.
	// Returns nil if not found.
	GetUserByChatID(ctx context.Context, chatID int64) (*domain.User, error)

	// ListUsers retrieves all users.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// ListUsersByRole retrieves users whose role matches, ignoring case.
	ListUsersByRole(ctx context.Context, role string) ([]*domain.User, error)

	// CreateUser inserts a user and assigns its ID.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// UpdateUser replaces the stored fields of an existing user.
	UpdateUser(ctx context.Context, id int64, user *domain.User) (*domain.User, error)

	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, id int64) error

	// CreateIssue inserts an issue and assigns its ID.
	CreateIssue(ctx context.Context, issue *domain.Issue) (*domain.Issue, error)

	// GetIssue retrieves an issue by ID. Returns nil if not found.
	GetIssue(ctx context.Context, id int64) (*domain.Issue, error)

	// ListIssues retrieves all issues.
	ListIssues(ctx context.Context) ([]*domain.Issue, error)

	// ListIssuesByAssignee retrieves all issues assigned to a user.
	ListIssuesByAssignee(ctx context.Context, userID int64) ([]*domain.Issue, error)

	// UpdateIssue replaces the stored fields of an existing issue.
	UpdateIssue(ctx context.Context, id int64, issue *domain.Issue) (*domain.Issue, error)

	// DeleteIssue removes an issue.
	DeleteIssue(ctx context.Context, id int64) error

	// CreateSprint inserts a sprint and assigns its ID.
	CreateSprint(ctx context.Context, sprint *domain.Sprint) (*domain.Sprint, error)

	// GetSprint retrieves a sprint by ID. Returns nil if not found.
	GetSprint(ctx context.Context, id int64) (*domain.Sprint, error)

	// ListSprints retrieves all sprints.
	ListSprints(ctx context.Context) ([]*domain.Sprint, error)

	// UpdateSprint replaces the stored fields of an existing sprint.
	UpdateSprint(ctx context.Context, id int64, sprint *domain.Sprint) (*domain.Sprint, error)

	// DeleteSprint removes a sprint.
	DeleteSprint(ctx context.Context, id int64) error

	// GetAlert retrieves an alert by ID. Returns nil if not found.
	GetAlert(ctx context.Context, id int64) (*domain.Alert, error)

	// ListAlertsByStatus retrieves alerts in the given delivery status.
	ListAlertsByStatus(ctx context.Context, status string) ([]*domain.Alert, error)

	// SaveAlert inserts the alert when its ID is zero, otherwise updates the
	// existing record.
	SaveAlert(ctx context.Context, alert *domain.Alert) (*domain.Alert, error)

	// DeleteAlert removes an alert.
	DeleteAlert(ctx context.Context, id int64) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
