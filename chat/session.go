// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"sync"
	"time"

	"github.com/poiesic/lokalrag/ai"
	"github.com/poiesic/lokalrag/core"
)

// DefaultMaxHistoryTurns bounds how many conversation turns a session keeps.
const DefaultMaxHistoryTurns = 10

// SessionInfo is a snapshot of session metadata.
type SessionInfo struct {
	SessionID       string    `json:"session_id"`
	TurnCount       int       `json:"turn_count"`
	CreatedAt       time.Time `json:"created_at"`
	MaxHistoryTurns int       `json:"max_history_turns"`
}

// Session holds the bounded conversation history of one chat session.
// All methods are safe for concurrent use.
type Session struct {
	id              string
	maxHistoryTurns int
	createdAt       time.Time

	mu    sync.Mutex
	turns []core.ConversationTurn
}

// NewSession creates a session with the given id. A non-positive
// maxHistoryTurns falls back to DefaultMaxHistoryTurns.
func NewSession(id string, maxHistoryTurns int) *Session {
	if maxHistoryTurns <= 0 {
		maxHistoryTurns = DefaultMaxHistoryTurns
	}
	return &Session{
		id:              id,
		maxHistoryTurns: maxHistoryTurns,
		createdAt:       time.Now().UTC(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// AddTurn appends a user/assistant entry pair sharing one timestamp, then
// trims history to the most recent 2×maxHistoryTurns entries. The trim is
// entry-based, not pair-based, reproducing the documented eviction rule.
func (s *Session) AddTurn(userMessage, assistantResponse string) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns,
		core.ConversationTurn{Role: core.RoleUser, Content: userMessage, Timestamp: now},
		core.ConversationTurn{Role: core.RoleAssistant, Content: assistantResponse, Timestamp: now},
	)

	if max := s.maxHistoryTurns * 2; len(s.turns) > max {
		s.turns = append([]core.ConversationTurn(nil), s.turns[len(s.turns)-max:]...)
	}
}

// HistoryForLLM projects the stored turns to role/content messages,
// preserving order and discarding timestamps.
func (s *Session) HistoryForLLM() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]ai.Message, len(s.turns))
	for i, turn := range s.turns {
		messages[i] = ai.Message{Role: turn.Role, Content: turn.Content}
	}
	return messages
}

// History returns a copy of the stored turns.
func (s *Session) History() []core.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ConversationTurn(nil), s.turns...)
}

// Info returns a metadata snapshot.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	turnCount := len(s.turns) / 2
	s.mu.Unlock()

	return SessionInfo{
		SessionID:       s.id,
		TurnCount:       turnCount,
		CreatedAt:       s.createdAt,
		MaxHistoryTurns: s.maxHistoryTurns,
	}
}
