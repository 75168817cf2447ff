package models

import (
	"time"
)

// SessionStatus defines the status of an assessment session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// AssessmentSession represents one assessment attempt. A session is created
// when the taxpayer info is validated, mutated to completed at finish, and
// anonymized after a retention window by an external cleanup job.
type AssessmentSession struct {
	ID              string        `json:"id" gorm:"primaryKey"`
	TaxpayerName    string        `json:"taxpayer_name"`
	TaxYear         string        `json:"tax_year"`
	FiscalStartDate *time.Time    `json:"fiscal_start_date,omitempty"` // only for non-calendar fiscal periods
	FiscalEndDate   *time.Time    `json:"fiscal_end_date,omitempty"`
	Status          SessionStatus `json:"status" gorm:"index"`
	RiskPoints      int           `json:"risk_points"` // accumulated over the flow, recomputed on truncation
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// SessionAnswer is the persisted answer row for one (session, question)
// pair. Upserts are keyed on the composite index; repeated calls overwrite,
// last write wins by AnsweredAt.
type SessionAnswer struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SessionID   string    `json:"session_id" gorm:"index:idx_session_question,unique"`
	QuestionID  string    `json:"question_id" gorm:"index:idx_session_question,unique"`
	Answer      string    `json:"answer"`
	Explanation string    `json:"explanation"`
	RiskPoints  int       `json:"risk_points"`
	AnsweredAt  time.Time `json:"answered_at"`
}
