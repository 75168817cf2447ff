package repository

import (
	"fmt"
	"log"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"gorm.io/gorm"
)

// CatalogRepository defines the read-only interface over the question
// catalog and the context-prompt candidates.
type CatalogRepository interface {
	FetchCatalog() ([]models.QuestionOption, error)
	FetchContextPrompts(questionID string, answerTrigger string) ([]string, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// FetchCatalog retrieves the full question catalog. The catalog is loaded
// once per service start; callers treat the result as immutable.
func (r *catalogRepository) FetchCatalog() ([]models.QuestionOption, error) {
	var options []models.QuestionOption
	err := r.db.Order("question_id asc, answer_option asc").Find(&options).Error
	if err != nil {
		log.Printf("ERROR: [CatalogRepository] Failed to fetch question catalog: %v", err)
		return nil, fmt.Errorf("failed to fetch question catalog: %w", err)
	}
	log.Printf("INFO: [CatalogRepository] Fetched %d catalog rows.", len(options))
	return options, nil
}

// FetchContextPrompts retrieves all follow-up prompt candidates for a
// (question, answer) pair. Returns an empty slice when none are configured.
func (r *catalogRepository) FetchContextPrompts(questionID string, answerTrigger string) ([]string, error) {
	var rows []models.ContextPromptRow
	err := r.db.
		Where("question_id = ? AND answer_trigger = ?", questionID, answerTrigger).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		log.Printf("ERROR: [CatalogRepository] Failed to fetch context prompts for questionID %s (trigger %q): %v", questionID, answerTrigger, err)
		return nil, fmt.Errorf("failed to fetch context prompts for question %s: %w", questionID, err)
	}

	prompts := make([]string, 0, len(rows))
	for _, row := range rows {
		prompts = append(prompts, row.Prompt)
	}
	log.Printf("INFO: [CatalogRepository] Fetched %d context prompts for questionID %s (trigger %q).", len(prompts), questionID, answerTrigger)
	return prompts, nil
}
