package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Content:   "some content",
				Type:      DocTypeDocument,
				CreatedAt: time.Now().Add(-time.Hour),
			},
			wantErr: nil,
		},
		{
			name: "valid note without timestamp",
			doc: &Document{
				Content: "a note",
				Type:    DocTypeNote,
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty content",
			doc: &Document{
				Type: DocTypeDocument,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "invalid type",
			doc: &Document{
				Content: "content",
				Type:    DocType(99),
			},
			wantErr: ErrInvalidDocType,
		},
		{
			name: "future timestamp",
			doc: &Document{
				Content:   "content",
				Type:      DocTypeDocument,
				CreatedAt: time.Now().Add(24 * time.Hour),
			},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocType(t *testing.T) {
	if err := ValidateDocType(DocTypeDocument); err != nil {
		t.Errorf("ValidateDocType(DocTypeDocument) unexpected error: %v", err)
	}
	if err := ValidateDocType(DocTypeNote); err != nil {
		t.Errorf("ValidateDocType(DocTypeNote) unexpected error: %v", err)
	}
	if err := ValidateDocType(DocType(0)); !errors.Is(err, ErrInvalidDocType) {
		t.Errorf("ValidateDocType(0) error = %v, want %v", err, ErrInvalidDocType)
	}
}

func TestValidateRole(t *testing.T) {
	if err := ValidateRole(RoleUser); err != nil {
		t.Errorf("ValidateRole(RoleUser) unexpected error: %v", err)
	}
	if err := ValidateRole(RoleAssistant); err != nil {
		t.Errorf("ValidateRole(RoleAssistant) unexpected error: %v", err)
	}
	if err := ValidateRole(Role(0)); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("ValidateRole(0) error = %v, want %v", err, ErrInvalidRole)
	}
}

func TestIsValidTimestamp(t *testing.T) {
	if !IsValidTimestamp(time.Now().Add(-time.Minute)) {
		t.Error("IsValidTimestamp() rejected a past timestamp")
	}
	if IsValidTimestamp(time.Now().Add(time.Hour)) {
		t.Error("IsValidTimestamp() accepted a future timestamp")
	}
}
