package api

import (
	"errors"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{"admin", "admin", RoleAdmin, false},
		{"hr", "hr", RoleHR, false},
		{"engineer", "engineer", RoleEngineer, false},
		{"intern", "intern", RoleIntern, false},
		{"unknown role", "superuser", "", true},
		{"empty", "", "", true},
		{"case sensitive", "Admin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRole(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ParseRole(%q) error = %v, want ErrValidation", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleEngineer.Valid() {
		t.Error("RoleEngineer.Valid() = false, want true")
	}
	if Role("superuser").Valid() {
		t.Error(`Role("superuser").Valid() = true, want false`)
	}
	if Role("").Valid() {
		t.Error(`Role("").Valid() = true, want false`)
	}
}

func TestDocumentStatus_Terminal(t *testing.T) {
	tests := []struct {
		status DocumentStatus
		want   bool
	}{
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDocumentList_ProcessingCount(t *testing.T) {
	now := time.Now()
	list := DocumentList{
		Items: []Document{
			{ID: "a", Status: StatusProcessing, UploadedAt: now},
			{ID: "b", Status: StatusCompleted, UploadedAt: now},
			{ID: "c", Status: StatusProcessing, UploadedAt: now},
			{ID: "d", Status: StatusFailed, UploadedAt: now},
		},
	}
	if got := list.ProcessingCount(); got != 2 {
		t.Errorf("ProcessingCount() = %d, want 2", got)
	}

	empty := DocumentList{}
	if got := empty.ProcessingCount(); got != 0 {
		t.Errorf("ProcessingCount() on empty list = %d, want 0", got)
	}
}
