package core

import (
	"testing"
	"time"
)

func TestDocumentMUS_RoundTrip(t *testing.T) {
	doc := Document{
		Id:        IDFromContent("project notes"),
		Title:     "Отчёт за октябрь",
		Content:   "Заметки о проекте.\nВторая строка.",
		Type:      DocTypeNote,
		Tags:      []string{"work", "отчёт"},
		Language:  "ru",
		CreatedAt: time.Date(2025, 10, 3, 12, 30, 0, 500000, time.UTC),
		Source:    "/notes/october.md",
		Vector:    []float32{0.1, -0.25, 3.5},
	}

	bs := make([]byte, DocumentMUS.Size(doc))
	n := DocumentMUS.Marshal(doc, bs)
	if n != len(bs) {
		t.Fatalf("Marshal wrote %d bytes, Size reported %d", n, len(bs))
	}

	got, n, err := DocumentMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if n != len(bs) {
		t.Errorf("Unmarshal consumed %d bytes, want %d", n, len(bs))
	}

	if got.Id != doc.Id || got.Title != doc.Title || got.Content != doc.Content {
		t.Errorf("identity fields mismatch: got %+v", got)
	}
	if got.Type != doc.Type || got.Language != doc.Language || got.Source != doc.Source {
		t.Errorf("metadata fields mismatch: got %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "work" || got.Tags[1] != "отчёт" {
		t.Errorf("tags mismatch: got %v", got.Tags)
	}
	// Timestamps survive at microsecond precision.
	if !got.CreatedAt.Equal(doc.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, doc.CreatedAt.Truncate(time.Microsecond))
	}
	if len(got.Vector) != 3 {
		t.Fatalf("vector length = %d, want 3", len(got.Vector))
	}
	for i := range doc.Vector {
		if got.Vector[i] != doc.Vector[i] {
			t.Errorf("vector[%d] = %v, want %v", i, got.Vector[i], doc.Vector[i])
		}
	}
}

func TestDocumentMUS_EmptyOptionalFields(t *testing.T) {
	doc := Document{
		Id:        42,
		Content:   "bare minimum",
		Type:      DocTypeDocument,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	bs := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, bs)

	got, _, err := DocumentMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Tags != nil {
		t.Errorf("Tags = %v, want nil", got.Tags)
	}
	if got.Vector != nil {
		t.Errorf("Vector = %v, want nil", got.Vector)
	}
	if got.Content != doc.Content || got.Id != doc.Id {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestDocumentMUS_TruncatedInput(t *testing.T) {
	doc := Document{Id: 7, Content: "content", Type: DocTypeDocument, CreatedAt: time.Now().UTC()}
	bs := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, bs)

	if _, _, err := DocumentMUS.Unmarshal(bs[:3]); err == nil {
		t.Error("Unmarshal accepted truncated input")
	}
}
