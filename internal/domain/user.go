// Package domain contains core domain types for the TaskMaster application.
package domain

import "strings"

// Roles known to the system. Role comparisons are case-insensitive because
// the records were entered by hand and casing drifted over time.
const (
	RoleProjectManager = "Project Manager"
	RoleEngineer       = "Engineer"
)

// User represents a team member with an optional messenger identity.
type User struct {
	ID     int64  `json:"id"`
	ChatID int64  `json:"chat_id,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// HasRole reports whether the user holds the given role, ignoring case.
func (u *User) HasRole(role string) bool {
	return strings.EqualFold(u.Role, role)
}

// IsManager reports whether the user is a project manager.
func (u *User) IsManager() bool {
	return u.HasRole(RoleProjectManager)
}

// IsEngineer reports whether the user is an engineer.
func (u *User) IsEngineer() bool {
	return u.HasRole(RoleEngineer)
}

// HasChatID reports whether the user has a deliverable messenger address.
func (u *User) HasChatID() bool {
	return u.ChatID != 0
}
