package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "cyrillic content",
			content: "заметки о проекте за октябрь",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocType_String(t *testing.T) {
	tests := []struct {
		name string
		typ  DocType
		want string
	}{
		{name: "document", typ: DocTypeDocument, want: "document"},
		{name: "note", typ: DocTypeNote, want: "note"},
		{name: "zero value falls back to document", typ: DocType(0), want: "document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("DocType.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDocType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want DocType
	}{
		{name: "note", in: "note", want: DocTypeNote},
		{name: "document", in: "document", want: DocTypeDocument},
		{name: "unknown maps to document", in: "bookmark", want: DocTypeDocument},
		{name: "empty maps to document", in: "", want: DocTypeDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDocType(tt.in); got != tt.want {
				t.Errorf("ParseDocType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDocType_RoundTrip(t *testing.T) {
	for _, typ := range []DocType{DocTypeDocument, DocTypeNote} {
		if got := ParseDocType(typ.String()); got != typ {
			t.Errorf("ParseDocType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
}

func TestRole_String(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want string
	}{
		{name: "user", role: RoleUser, want: "user"},
		{name: "assistant", role: RoleAssistant, want: "assistant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.String(); got != tt.want {
				t.Errorf("Role.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
