package repository

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerRepository defines the interface for persisted session answers.
// One logical row exists per (session, question) pair; upserts overwrite.
type AnswerRepository interface {
	UpsertAnswer(answer *models.SessionAnswer) error
	DeleteAnswer(sessionID string, questionID string) error
	ListBySession(sessionID string) ([]*models.SessionAnswer, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository creates a new instance of AnswerRepository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// UpsertAnswer inserts or overwrites the answer row keyed on
// (session_id, question_id). Last write wins by AnsweredAt.
func (r *answerRepository) UpsertAnswer(answer *models.SessionAnswer) error {
	if answer == nil {
		log.Printf("ERROR: [AnswerRepository] UpsertAnswer: answer cannot be nil")
		return errors.New("answer cannot be nil")
	}
	if answer.SessionID == "" || answer.QuestionID == "" {
		log.Printf("ERROR: [AnswerRepository] UpsertAnswer: sessionID and questionID are required (got %q, %q)", answer.SessionID, answer.QuestionID)
		return errors.New("sessionID and questionID are required")
	}
	if answer.AnsweredAt.IsZero() {
		answer.AnsweredAt = time.Now()
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"answer", "explanation", "risk_points", "answered_at",
		}),
	}).Create(answer).Error
	if err != nil {
		log.Printf("ERROR: [AnswerRepository] Failed to upsert answer for session %s, question %s: %v", answer.SessionID, answer.QuestionID, err)
		return fmt.Errorf("failed to upsert answer for session %s, question %s: %w", answer.SessionID, answer.QuestionID, err)
	}
	log.Printf("INFO: [AnswerRepository] Upserted answer for session %s, question %s (answer %q).", answer.SessionID, answer.QuestionID, answer.Answer)
	return nil
}

// DeleteAnswer removes the persisted answer for one (session, question)
// pair. Deleting a row that does not exist is not an error.
func (r *answerRepository) DeleteAnswer(sessionID string, questionID string) error {
	if sessionID == "" || questionID == "" {
		log.Printf("ERROR: [AnswerRepository] DeleteAnswer: sessionID and questionID are required (got %q, %q)", sessionID, questionID)
		return errors.New("sessionID and questionID are required")
	}
	err := r.db.
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Delete(&models.SessionAnswer{}).Error
	if err != nil {
		log.Printf("ERROR: [AnswerRepository] Failed to delete answer for session %s, question %s: %v", sessionID, questionID, err)
		return fmt.Errorf("failed to delete answer for session %s, question %s: %w", sessionID, questionID, err)
	}
	log.Printf("INFO: [AnswerRepository] Deleted answer for session %s, question %s.", sessionID, questionID)
	return nil
}

// ListBySession retrieves all persisted answers for a session in answer
// order (AnsweredAt ascending), which mirrors the flow order.
func (r *answerRepository) ListBySession(sessionID string) ([]*models.SessionAnswer, error) {
	if sessionID == "" {
		log.Printf("ERROR: [AnswerRepository] ListBySession: sessionID cannot be empty")
		return nil, errors.New("sessionID cannot be empty")
	}
	var answers []*models.SessionAnswer
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("answered_at asc, id asc").
		Find(&answers).Error
	if err != nil {
		log.Printf("ERROR: [AnswerRepository] Failed to list answers for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("failed to list answers for session %s: %w", sessionID, err)
	}
	log.Printf("INFO: [AnswerRepository] Retrieved %d answers for session %s.", len(answers), sessionID)
	return answers, nil
}
