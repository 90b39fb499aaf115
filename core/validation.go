// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Type must be valid (document or note)
//   - CreatedAt must not be in the future
//
// NOT validated (populated at ingestion time):
//   - Vector (can be empty until the document is embedded)
//   - ID (0 is valid; content-based IDs are assigned on store)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if err := ValidateDocType(doc.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !doc.CreatedAt.IsZero() && !IsValidTimestamp(doc.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateDocType validates that a DocType has a valid value.
func ValidateDocType(t DocType) error {
	if t != DocTypeDocument && t != DocTypeNote {
		return fmt.Errorf("%w: value %d", ErrInvalidDocType, t)
	}
	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(r Role) error {
	if r != RoleUser && r != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, r)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
