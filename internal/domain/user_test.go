package domain

import "testing"

func TestHasRoleIgnoresCase(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"Project Manager", true},
		{"project manager", true},
		{"PROJECT MANAGER", true},
		{"Engineer", false},
		{"", false},
	}
	for _, tt := range tests {
		u := &User{Role: tt.role}
		if got := u.IsManager(); got != tt.want {
			t.Errorf("IsManager() with role %q = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestHasChatID(t *testing.T) {
	if (&User{}).HasChatID() {
		t.Error("Expected no chat ID on zero value")
	}
	if !(&User{ChatID: 42}).HasChatID() {
		t.Error("Expected chat ID 42 to be deliverable")
	}
}
