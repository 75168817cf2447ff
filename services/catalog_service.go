package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/lennart93/atad2-advisor-sub000/models"
	"github.com/lennart93/atad2-advisor-sub000/repository"
)

// CatalogService holds the in-memory question catalog: the immutable table
// of (question, answer) rows that defines the flow graph. The catalog is
// loaded once and treated as read-only for the lifetime of the process.
type CatalogService interface {
	Load() error
	FindEntry(questionID string, answerOption string) *models.QuestionOption
	OptionsFor(questionID string) []models.QuestionOption
	EntryQuestion() (*models.QuestionOption, error)
}

type catalogService struct {
	repo repository.CatalogRepository

	mu      sync.RWMutex
	options []models.QuestionOption
	byKey   map[string]*models.QuestionOption // "questionID|answer" (answer lowercased)
}

// NewCatalogService creates a new CatalogService. Load must be called
// before the lookup methods return anything useful.
func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{
		repo:  repo,
		byKey: make(map[string]*models.QuestionOption),
	}
}

func catalogKey(questionID, answerOption string) string {
	return questionID + "|" + strings.ToLower(answerOption)
}

// Load fetches the full catalog from the repository. On transport or
// content failure it returns an error wrapping ErrCatalogLoad and keeps no
// partial catalog; the caller surfaces this as "cannot start assessment".
func (s *catalogService) Load() error {
	options, err := s.repo.FetchCatalog()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	if len(options) == 0 {
		log.Printf("ERROR: [CatalogService] Catalog fetch returned zero rows; the questionnaire is not configured.")
		return fmt.Errorf("%w: catalog is empty", ErrCatalogLoad)
	}

	byKey := make(map[string]*models.QuestionOption, len(options))
	for i := range options {
		byKey[catalogKey(options[i].QuestionID, options[i].AnswerOption)] = &options[i]
	}

	s.mu.Lock()
	s.options = options
	s.byKey = byKey
	s.mu.Unlock()

	log.Printf("INFO: [CatalogService] Loaded %d catalog rows.", len(options))
	return nil
}

// FindEntry is a pure lookup of the row for (questionID, answerOption).
// The answer match is case-insensitive. Returns nil when no row exists.
func (s *catalogService) FindEntry(questionID string, answerOption string) *models.QuestionOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.byKey[catalogKey(questionID, answerOption)]; ok {
		copied := *entry
		return &copied
	}
	return nil
}

// answerRank gives the fixed display order for answers: Yes first, No
// second, Unknown third, anything else after, matched case-insensitively.
func answerRank(answer string) int {
	switch strings.ToLower(answer) {
	case strings.ToLower(models.AnswerYes):
		return 0
	case strings.ToLower(models.AnswerNo):
		return 1
	case strings.ToLower(models.AnswerUnknown):
		return 2
	default:
		return 3
	}
}

// OptionsFor returns all answer choices for a question in display order.
// The sort is stable, so catalog order decides between two "other" labels.
func (s *catalogService) OptionsFor(questionID string) []models.QuestionOption {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.QuestionOption
	for _, opt := range s.options {
		if opt.QuestionID == questionID {
			result = append(result, opt)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return answerRank(result[i].AnswerOption) < answerRank(result[j].AnswerOption)
	})
	return result
}

// EntryQuestion returns the catalog's entry row: question "1", answer
// "Yes". That the entry is this specific row is a catalog convention.
func (s *catalogService) EntryQuestion() (*models.QuestionOption, error) {
	entry := s.FindEntry(models.EntryQuestionID, models.AnswerYes)
	if entry == nil {
		log.Printf("ERROR: [CatalogService] Entry question (question_id %q, answer %q) not found in catalog.", models.EntryQuestionID, models.AnswerYes)
		return nil, fmt.Errorf("%w: entry question missing", ErrCatalogLoad)
	}
	return entry, nil
}
