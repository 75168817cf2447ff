package services

import (
	"testing"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"github.com/stretchr/testify/assert"
)

func TestStateStore(t *testing.T) {
	t.Run("Get returns zero value for unvisited questions", func(t *testing.T) {
		store := NewStateStore()
		state := store.Get("s1", "1")
		assert.Empty(t, state.Answer)
		assert.Empty(t, state.Explanation)
		assert.Nil(t, state.LastSyncedAt)
	})

	t.Run("Update creates state lazily", func(t *testing.T) {
		store := NewStateStore()
		store.Update("s1", "1", func(state *models.QuestionState) {
			state.Answer = "Yes"
		})
		assert.Equal(t, "Yes", store.Get("s1", "1").Answer)
	})

	t.Run("Sessions are isolated", func(t *testing.T) {
		store := NewStateStore()
		store.Set("s1", "1", models.QuestionState{Answer: "Yes", Explanation: "group spans NL and DE"})
		store.Set("s2", "1", models.QuestionState{Answer: "No"})

		assert.Equal(t, "Yes", store.Get("s1", "1").Answer)
		assert.Equal(t, "No", store.Get("s2", "1").Answer)
		assert.Empty(t, store.Get("s2", "1").Explanation)
	})

	t.Run("Question IDs under a session do not collide", func(t *testing.T) {
		store := NewStateStore()
		store.Set("s1", "1", models.QuestionState{Answer: "Yes"})
		store.Set("s1", "11", models.QuestionState{Answer: "No"})
		assert.Equal(t, "Yes", store.Get("s1", "1").Answer)
		assert.Equal(t, "No", store.Get("s1", "11").Answer)
	})

	t.Run("ClearAll wipes every session", func(t *testing.T) {
		store := NewStateStore()
		store.Set("s1", "1", models.QuestionState{Answer: "Yes"})
		store.Set("s2", "2", models.QuestionState{Answer: "No"})
		store.ClearAll()
		assert.Empty(t, store.Get("s1", "1").Answer)
		assert.Empty(t, store.Get("s2", "2").Answer)
	})

	t.Run("Get returns a copy, not shared state", func(t *testing.T) {
		store := NewStateStore()
		store.Set("s1", "1", models.QuestionState{Answer: "Yes"})
		state := store.Get("s1", "1")
		state.Answer = "No"
		assert.Equal(t, "Yes", store.Get("s1", "1").Answer)
	})
}
