package services

import (
	"errors"
	"testing"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCatalogRepository is a mock type for the CatalogRepository interface
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FetchCatalog() ([]models.QuestionOption, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuestionOption), args.Error(1)
}

func (m *MockCatalogRepository) FetchContextPrompts(questionID string, answerTrigger string) ([]string, error) {
	args := m.Called(questionID, answerTrigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestCatalogService_Load(t *testing.T) {
	t.Run("Load succeeds and indexes rows", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		mockRepo.On("FetchCatalog").Return([]models.QuestionOption{
			{QuestionID: "1", AnswerOption: "Yes", NextQuestionID: "2"},
			{QuestionID: "1", AnswerOption: "No", NextQuestionID: "end"},
		}, nil).Once()

		service := NewCatalogService(mockRepo)
		err := service.Load()

		assert.NoError(t, err)
		assert.NotNil(t, service.FindEntry("1", "Yes"))
		assert.NotNil(t, service.FindEntry("1", "No"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Load fails on repository error", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		mockRepo.On("FetchCatalog").Return(nil, errors.New("connection refused")).Once()

		service := NewCatalogService(mockRepo)
		err := service.Load()

		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrCatalogLoad))
		assert.Nil(t, service.FindEntry("1", "Yes"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Load fails on empty catalog", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		mockRepo.On("FetchCatalog").Return([]models.QuestionOption{}, nil).Once()

		service := NewCatalogService(mockRepo)
		err := service.Load()

		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrCatalogLoad))
		mockRepo.AssertExpectations(t)
	})
}

func TestCatalogService_FindEntry(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	mockRepo.On("FetchCatalog").Return([]models.QuestionOption{
		{QuestionID: "1", AnswerOption: "Yes", NextQuestionID: "2", RiskPoints: 1},
	}, nil).Once()
	service := NewCatalogService(mockRepo)
	assert.NoError(t, service.Load())

	t.Run("Answer match is case-insensitive", func(t *testing.T) {
		assert.NotNil(t, service.FindEntry("1", "yes"))
		assert.NotNil(t, service.FindEntry("1", "YES"))
	})

	t.Run("Unknown pair returns nil", func(t *testing.T) {
		assert.Nil(t, service.FindEntry("1", "Maybe"))
		assert.Nil(t, service.FindEntry("99", "Yes"))
	})

	t.Run("Returned entry is a copy", func(t *testing.T) {
		entry := service.FindEntry("1", "Yes")
		entry.RiskPoints = 42
		assert.Equal(t, 1, service.FindEntry("1", "Yes").RiskPoints)
	})
}

func TestCatalogService_OptionsFor(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	// Deliberately out of display order, with two non-standard labels.
	mockRepo.On("FetchCatalog").Return([]models.QuestionOption{
		{QuestionID: "2", AnswerOption: "Unknown", NextQuestionID: "3"},
		{QuestionID: "2", AnswerOption: "Partially", NextQuestionID: "3"},
		{QuestionID: "2", AnswerOption: "No", NextQuestionID: "end"},
		{QuestionID: "2", AnswerOption: "Not applicable", NextQuestionID: "end"},
		{QuestionID: "2", AnswerOption: "Yes", NextQuestionID: "3"},
		{QuestionID: "3", AnswerOption: "Yes", NextQuestionID: "end"},
	}, nil).Once()
	service := NewCatalogService(mockRepo)
	assert.NoError(t, service.Load())

	t.Run("Yes, No, Unknown first, other labels keep catalog order", func(t *testing.T) {
		options := service.OptionsFor("2")
		labels := make([]string, 0, len(options))
		for _, opt := range options {
			labels = append(labels, opt.AnswerOption)
		}
		assert.Equal(t, []string{"Yes", "No", "Unknown", "Partially", "Not applicable"}, labels)
	})

	t.Run("Unknown question yields no options", func(t *testing.T) {
		assert.Empty(t, service.OptionsFor("99"))
	})
}

func TestCatalogService_EntryQuestion(t *testing.T) {
	t.Run("Entry question found", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		mockRepo.On("FetchCatalog").Return([]models.QuestionOption{
			{QuestionID: "1", AnswerOption: "Yes", NextQuestionID: "2"},
		}, nil).Once()
		service := NewCatalogService(mockRepo)
		assert.NoError(t, service.Load())

		entry, err := service.EntryQuestion()
		assert.NoError(t, err)
		assert.Equal(t, "1", entry.QuestionID)
	})

	t.Run("Missing entry question is a catalog error", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		mockRepo.On("FetchCatalog").Return([]models.QuestionOption{
			{QuestionID: "2", AnswerOption: "Yes", NextQuestionID: "end"},
		}, nil).Once()
		service := NewCatalogService(mockRepo)
		assert.NoError(t, service.Load())

		entry, err := service.EntryQuestion()
		assert.Nil(t, entry)
		assert.True(t, errors.Is(err, ErrCatalogLoad))
	})
}
