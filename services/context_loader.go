package services

import (
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"
	"github.com/lennart93/atad2-advisor-sub000/repository"
)

// DefaultContextTimeout is the hard cancellation window for one
// context-prompt fetch. After it fires the lookup is in error regardless of
// whether the underlying fetch later resolves; late results are discarded.
const DefaultContextTimeout = 6 * time.Second

// ContextLoader fetches follow-up prompt candidates for a (question,
// answer) pair and tracks a per-question status lifecycle:
//
//	idle -> loading -> ready(prompts) | none | error(message)
//
// Transitions are guarded two ways. A lookup result is applied only while
// the question is still loading for the same answer the fetch was issued
// for, so out-of-order completions never clobber newer state. And a result
// is discarded silently when the store's recorded answer for the question
// has changed mid-flight, so a late response never shows a prompt for the
// wrong answer.
type ContextLoader struct {
	repo    repository.CatalogRepository
	store   *StateStore
	timeout time.Duration

	mu     sync.Mutex
	states map[string]models.ContextState // keyed sessionID:questionID
}

// NewContextLoader creates a ContextLoader. A non-positive timeout falls
// back to DefaultContextTimeout.
func NewContextLoader(repo repository.CatalogRepository, store *StateStore, timeout time.Duration) *ContextLoader {
	if timeout <= 0 {
		timeout = DefaultContextTimeout
	}
	return &ContextLoader{
		repo:    repo,
		store:   store,
		timeout: timeout,
		states:  make(map[string]models.ContextState),
	}
}

// State returns the current context status for (session, question). The
// zero value has status idle.
func (l *ContextLoader) State(sessionID, questionID string) models.ContextState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.states[stateKey(sessionID, questionID)]
	if !ok {
		return models.ContextState{Status: models.ContextStatusIdle}
	}
	return state
}

// Clear resets the context status for (session, question) to idle. Invoked
// when the user navigates away from a question.
func (l *ContextLoader) Clear(sessionID, questionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, stateKey(sessionID, questionID))
}

// Load starts an asynchronous prompt fetch for (question, answer) and arms
// the cancellation timer. Calling Load for a question already loading with
// the same answer is a no-op: the timer is not restarted and no duplicate
// fetch is issued. Retry after an error re-enters loading through the same
// path.
func (l *ContextLoader) Load(sessionID, questionID, answer string) {
	key := stateKey(sessionID, questionID)

	l.mu.Lock()
	current := l.states[key]
	if current.Status == models.ContextStatusLoading && current.Answer == answer {
		l.mu.Unlock()
		log.Printf("INFO: [ContextLoader] Lookup for session %s, question %s (answer %q) already in flight; ignoring duplicate.", sessionID, questionID, answer)
		return
	}
	l.states[key] = models.ContextState{
		Status: models.ContextStatusLoading,
		Answer: answer,
	}
	l.mu.Unlock()

	go l.fetch(sessionID, questionID, answer)
}

type promptFetchResult struct {
	prompts []string
	err     error
}

func (l *ContextLoader) fetch(sessionID, questionID, answer string) {
	resultCh := make(chan promptFetchResult, 1)
	go func() {
		prompts, err := l.repo.FetchContextPrompts(questionID, answer)
		resultCh <- promptFetchResult{prompts: prompts, err: err}
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		l.apply(sessionID, questionID, answer, res)
	case <-timer.C:
		log.Printf("WARN: [ContextLoader] Context prompt fetch for session %s, question %s timed out after %s.", sessionID, questionID, l.timeout)
		l.apply(sessionID, questionID, answer, promptFetchResult{err: ErrContextLoad})
		// A late arrival on resultCh is dropped: the channel is buffered and
		// apply refuses results once the state has left loading.
	}
}

// apply settles one lookup, subject to the in-flight and staleness guards.
func (l *ContextLoader) apply(sessionID, questionID, answer string, res promptFetchResult) {
	key := stateKey(sessionID, questionID)

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.states[key]
	if current.Status != models.ContextStatusLoading || current.Answer != answer {
		log.Printf("INFO: [ContextLoader] Discarding settled lookup for session %s, question %s (answer %q): no longer in flight.", sessionID, questionID, answer)
		return
	}

	// Staleness guard: the user may have changed the answer while the
	// fetch was in flight. A stale result is dropped with no transition.
	if recorded := l.store.Get(sessionID, questionID).Answer; recorded != answer {
		log.Printf("INFO: [ContextLoader] Discarding stale lookup for session %s, question %s: fetched for answer %q but recorded answer is now %q.", sessionID, questionID, answer, recorded)
		return
	}

	switch {
	case res.err != nil:
		l.states[key] = models.ContextState{
			Status:  models.ContextStatusError,
			Answer:  answer,
			Message: res.err.Error(),
		}
	case len(res.prompts) == 0:
		l.states[key] = models.ContextState{
			Status: models.ContextStatusNone,
			Answer: answer,
		}
	default:
		l.states[key] = models.ContextState{
			Status:  models.ContextStatusReady,
			Answer:  answer,
			Prompts: res.prompts,
		}
		selected := SelectPrompt(sessionID, questionID, res.prompts)
		l.store.Update(sessionID, questionID, func(state *models.QuestionState) {
			state.ContextPrompt = selected
		})
		log.Printf("INFO: [ContextLoader] Session %s, question %s: %d prompts ready, selected %q.", sessionID, questionID, len(res.prompts), selected)
	}
}

// SelectPrompt picks the prompt to display from a candidate list. The pick
// is a stable hash of sessionID::questionID, so repeated visits to the same
// question within a session show the same prompt without persisting a
// random pick server-side.
func SelectPrompt(sessionID, questionID string, prompts []string) string {
	if len(prompts) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(sessionID + "::" + questionID))
	return prompts[int(h.Sum32())%len(prompts)]
}
