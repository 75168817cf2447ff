package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAnswerRepository is a mock type for the AnswerRepository interface
type MockAnswerRepository struct {
	mock.Mock
}

func (m *MockAnswerRepository) UpsertAnswer(answer *models.SessionAnswer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) DeleteAnswer(sessionID string, questionID string) error {
	args := m.Called(sessionID, questionID)
	return args.Error(0)
}

func (m *MockAnswerRepository) ListBySession(sessionID string) ([]*models.SessionAnswer, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SessionAnswer), args.Error(1)
}

const testDebounce = 20 * time.Millisecond

func newTestAutosave(answers *MockAnswerRepository) (*AutosaveChannel, *StateStore) {
	store := NewStateStore()
	channel := NewAutosaveChannel(answers, store, testDebounce)
	channel.RiskResolver = func(questionID, answer string) (int, bool) {
		if answer == "Yes" {
			return 2, true
		}
		return 0, true
	}
	return channel, store
}

func TestAutosaveChannel_UpdateExplanation(t *testing.T) {
	t.Run("Local state updates immediately, upsert waits for debounce", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, store := newTestAutosave(answers)
		store.Update("s1", "2", func(state *models.QuestionState) { state.Answer = "Yes" })

		channel.UpdateExplanation("s1", "2", "intra-group loan to the US entity")

		assert.Equal(t, "intra-group loan to the US entity", store.Get("s1", "2").Explanation)
		answers.AssertNotCalled(t, "UpsertAnswer", mock.Anything)

		time.Sleep(4 * testDebounce)
		answers.AssertCalled(t, "UpsertAnswer", mock.MatchedBy(func(sa *models.SessionAnswer) bool {
			return sa.SessionID == "s1" && sa.QuestionID == "2" &&
				sa.Answer == "Yes" && sa.RiskPoints == 2 &&
				sa.Explanation == "intra-group loan to the US entity"
		}))
	})

	t.Run("Rapid edits collapse into one upsert with the latest text", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, store := newTestAutosave(answers)
		store.Update("s1", "2", func(state *models.QuestionState) { state.Answer = "Yes" })

		channel.UpdateExplanation("s1", "2", "intra")
		channel.UpdateExplanation("s1", "2", "intra-group")
		channel.UpdateExplanation("s1", "2", "intra-group loan")

		time.Sleep(4 * testDebounce)
		answers.AssertNumberOfCalls(t, "UpsertAnswer", 1)
		answers.AssertCalled(t, "UpsertAnswer", mock.MatchedBy(func(sa *models.SessionAnswer) bool {
			return sa.Explanation == "intra-group loan"
		}))
	})

	t.Run("Successful save marks the state reconciled", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, store := newTestAutosave(answers)

		channel.UpdateExplanation("s1", "2", "documented")
		time.Sleep(4 * testDebounce)

		state := store.Get("s1", "2")
		assert.NotNil(t, state.LastSyncedAt)
		assert.Equal(t, "documented", state.LastSyncedExplanation)
		assert.True(t, state.Synced())
	})

	t.Run("Failed save leaves the state unreconciled", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(errors.New("constraint violation"))
		channel, store := newTestAutosave(answers)

		channel.UpdateExplanation("s1", "2", "unsaved")
		time.Sleep(4 * testDebounce)

		state := store.Get("s1", "2")
		assert.Equal(t, "unsaved", state.Explanation)
		assert.Nil(t, state.LastSyncedAt)
		assert.False(t, state.Synced())
	})
}

func TestAutosaveChannel_Cancel(t *testing.T) {
	t.Run("Cancel before the debounce fires prevents the upsert", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, store := newTestAutosave(answers)

		channel.UpdateExplanation("s1", "2", "half-typed")
		channel.Cancel("s1", "2")

		time.Sleep(4 * testDebounce)
		answers.AssertNotCalled(t, "UpsertAnswer", mock.Anything)
		// The local text survives; only the pending write is dropped.
		assert.Equal(t, "half-typed", store.Get("s1", "2").Explanation)
	})

	t.Run("Cancel with nothing pending is a no-op", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		channel, _ := newTestAutosave(answers)
		channel.Cancel("s1", "2")
		answers.AssertNotCalled(t, "UpsertAnswer", mock.Anything)
	})
}

func TestAutosaveChannel_Flush(t *testing.T) {
	t.Run("Flush saves immediately and disarms the timer", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, store := newTestAutosave(answers)
		store.Update("s1", "2", func(state *models.QuestionState) { state.Answer = "No" })

		channel.UpdateExplanation("s1", "2", "final text")
		err := channel.Flush("s1", "2")

		assert.NoError(t, err)
		answers.AssertNumberOfCalls(t, "UpsertAnswer", 1)

		// The debounce window passing must not produce a second write.
		time.Sleep(4 * testDebounce)
		answers.AssertNumberOfCalls(t, "UpsertAnswer", 1)
	})

	t.Run("Flush with nothing pending and a reconciled state is a no-op", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, _ := newTestAutosave(answers)

		channel.UpdateExplanation("s1", "2", "saved once")
		time.Sleep(4 * testDebounce)
		answers.AssertNumberOfCalls(t, "UpsertAnswer", 1)

		assert.NoError(t, channel.Flush("s1", "2"))
		answers.AssertNumberOfCalls(t, "UpsertAnswer", 1)
	})

	t.Run("Flush retries a failed debounced save with the latest value", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(errors.New("timeout")).Once()
		answers.On("UpsertAnswer", mock.Anything).Return(nil)
		channel, store := newTestAutosave(answers)

		channel.UpdateExplanation("s1", "2", "first attempt")
		time.Sleep(4 * testDebounce)
		state := store.Get("s1", "2")
		assert.False(t, state.Synced())

		assert.NoError(t, channel.Flush("s1", "2"))
		state = store.Get("s1", "2")
		assert.True(t, state.Synced())
	})

	t.Run("Flush failure surfaces as a submit error", func(t *testing.T) {
		answers := new(MockAnswerRepository)
		answers.On("UpsertAnswer", mock.Anything).Return(errors.New("connection reset"))
		channel, _ := newTestAutosave(answers)

		channel.UpdateExplanation("s1", "2", "text")
		err := channel.Flush("s1", "2")

		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrSubmit))
	})
}
