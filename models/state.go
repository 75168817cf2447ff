package models

import (
	"time"
)

// QuestionState is the client-best-known state for one (session, question)
// pair, held in the session-scoped state store. Created lazily on first
// visit, mutated by answer selection and explanation edits, never deleted
// except on a full session clear.
//
// Invariant: Explanation is the best-known value; LastSyncedAt marks it as
// reconciled with the answer store. A gap between Explanation and
// LastSyncedExplanation signals a pending or failed save.
type QuestionState struct {
	Answer                string     `json:"answer"` // "", "Yes", "No", "Unknown", ...
	Explanation           string     `json:"explanation"`
	ContextPrompt         string     `json:"context_prompt,omitempty"`
	ShouldShowContext     bool       `json:"should_show_context"`
	LastSyncedAt          *time.Time `json:"last_synced_at,omitempty"`
	LastSyncedExplanation string     `json:"last_synced_explanation,omitempty"`
}

// Synced reports whether the explanation has been reconciled with the
// answer store.
func (s *QuestionState) Synced() bool {
	return s.LastSyncedAt != nil && s.LastSyncedExplanation == s.Explanation
}

// ContextStatus is the finite-state value of one context-prompt lookup.
type ContextStatus string

const (
	ContextStatusIdle    ContextStatus = "idle"
	ContextStatusLoading ContextStatus = "loading"
	ContextStatusReady   ContextStatus = "ready"
	ContextStatusNone    ContextStatus = "none"
	ContextStatusError   ContextStatus = "error"
)

// ContextState tracks one in-flight (or settled) context-prompt lookup for
// a question. Answer records which answer the lookup was issued for, so a
// late result for a superseded answer can be discarded.
type ContextState struct {
	Status  ContextStatus `json:"status"`
	Answer  string        `json:"answer,omitempty"`
	Prompts []string      `json:"prompts,omitempty"` // all candidates when ready
	Message string        `json:"message,omitempty"` // error detail when status is error
}
