package repository

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"gorm.io/gorm"
)

// SessionRepository defines the interface for assessment session records.
type SessionRepository interface {
	CreateSession(session *models.AssessmentSession) error
	UpdateSession(session *models.AssessmentSession) error
	GetSessionByID(sessionID string) (*models.AssessmentSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// CreateSession persists a new assessment session.
func (r *sessionRepository) CreateSession(session *models.AssessmentSession) error {
	if session == nil {
		log.Printf("ERROR: [SessionRepository] CreateSession: session cannot be nil")
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		log.Printf("ERROR: [SessionRepository] CreateSession: session ID cannot be empty")
		return errors.New("session ID cannot be empty")
	}
	if session.Status == "" {
		session.Status = models.SessionStatusInProgress
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	if err := r.db.Create(session).Error; err != nil {
		log.Printf("ERROR: [SessionRepository] Failed to create session %s: %v", session.ID, err)
		return fmt.Errorf("failed to create session %s: %w", session.ID, err)
	}
	log.Printf("INFO: [SessionRepository] Created session %s for taxpayer %q (tax year %s).", session.ID, session.TaxpayerName, session.TaxYear)
	return nil
}

// UpdateSession saves changes to an existing session record.
func (r *sessionRepository) UpdateSession(session *models.AssessmentSession) error {
	if session == nil {
		log.Printf("ERROR: [SessionRepository] UpdateSession: session cannot be nil")
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		log.Printf("ERROR: [SessionRepository] UpdateSession: session ID must be provided for update")
		return errors.New("session ID must be provided for update")
	}
	if err := r.db.Save(session).Error; err != nil {
		log.Printf("ERROR: [SessionRepository] Failed to update session %s: %v", session.ID, err)
		return fmt.Errorf("failed to update session %s: %w", session.ID, err)
	}
	log.Printf("INFO: [SessionRepository] Updated session %s (status %s).", session.ID, session.Status)
	return nil
}

// GetSessionByID retrieves a session by its ID. Returns (nil, nil) when the
// session does not exist; callers interpret the absence.
func (r *sessionRepository) GetSessionByID(sessionID string) (*models.AssessmentSession, error) {
	if sessionID == "" {
		log.Printf("ERROR: [SessionRepository] GetSessionByID: sessionID cannot be empty")
		return nil, errors.New("sessionID cannot be empty")
	}
	var session models.AssessmentSession
	err := r.db.First(&session, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("INFO: [SessionRepository] Session %s not found.", sessionID)
			return nil, nil
		}
		log.Printf("ERROR: [SessionRepository] Failed to retrieve session %s: %v", sessionID, err)
		return nil, fmt.Errorf("failed to retrieve session %s: %w", sessionID, err)
	}
	return &session, nil
}
