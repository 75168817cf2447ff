package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"
	"github.com/lennart93/atad2-advisor-sub000/repository"
)

// DefaultAutosaveDebounce is the quiet window after the last explanation
// edit before the upsert is issued.
const DefaultAutosaveDebounce = 600 * time.Millisecond

// pendingSave is the snapshot scheduled for one debounced upsert. The
// answer and risk points are captured at schedule time, not read fresh at
// fire time, so a stale answer can never overwrite a newer one.
type pendingSave struct {
	timer       *time.Timer
	sessionID   string
	questionID  string
	answer      string
	explanation string
	riskPoints  int
}

// AutosaveChannel persists free-text explanations with per-question
// debounce. Local state updates are synchronous; the network upsert fires
// after the debounce window. Cancellation stops the pending timer but
// cannot recall an upsert already sent over the wire; that asymmetry is
// deliberate, eventual consistency with last-write-wins is acceptable.
type AutosaveChannel struct {
	answers  repository.AnswerRepository
	store    *StateStore
	debounce time.Duration

	// RiskResolver resolves the risk points for a (question, answer) pair
	// so the debounced payload carries them. Assigned once at wiring time,
	// before any traffic.
	RiskResolver func(questionID, answer string) (int, bool)

	mu      sync.Mutex
	pending map[string]*pendingSave // keyed sessionID:questionID
}

// NewAutosaveChannel creates an AutosaveChannel. A non-positive debounce
// falls back to DefaultAutosaveDebounce.
func NewAutosaveChannel(answers repository.AnswerRepository, store *StateStore, debounce time.Duration) *AutosaveChannel {
	if debounce <= 0 {
		debounce = DefaultAutosaveDebounce
	}
	return &AutosaveChannel{
		answers:  answers,
		store:    store,
		debounce: debounce,
		pending:  make(map[string]*pendingSave),
	}
}

// UpdateExplanation writes the new text into the question state
// immediately and (re)arms the debounce timer with a fresh snapshot. An
// edit arriving while an upsert is mid-flight supersedes the timer but
// does not cancel the write already on the wire.
func (a *AutosaveChannel) UpdateExplanation(sessionID, questionID, text string) {
	a.store.Update(sessionID, questionID, func(state *models.QuestionState) {
		state.Explanation = text
	})

	snapshot := a.store.Get(sessionID, questionID)
	key := stateKey(sessionID, questionID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pendingSave{
		sessionID:   sessionID,
		questionID:  questionID,
		answer:      snapshot.Answer,
		explanation: text,
	}
	if entryRisk, ok := a.riskPointsFor(questionID, snapshot.Answer); ok {
		p.riskPoints = entryRisk
	}
	p.timer = time.AfterFunc(a.debounce, func() {
		a.fire(key)
	})
	a.pending[key] = p
}

func (a *AutosaveChannel) riskPointsFor(questionID, answer string) (int, bool) {
	if a.RiskResolver == nil {
		return 0, false
	}
	return a.RiskResolver(questionID, answer)
}

// fire runs when the debounce window elapses without further edits.
func (a *AutosaveChannel) fire(key string) {
	a.mu.Lock()
	p, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	a.mu.Unlock()

	if err := a.save(p); err != nil {
		// Failure policy: leave the local value pending (not reconciled)
		// and retry opportunistically with the latest value on the next
		// edit or flush. Never surfaced as a blocking error.
		log.Printf("WARN: [AutosaveChannel] Debounced save failed for session %s, question %s (will retry on next edit/flush): %v", p.sessionID, p.questionID, err)
	}
}

// Cancel stops the pending debounce timer for (session, question), if any.
// Invoked when the user navigates away from a question before the debounce
// fires, so stale text is never written under the wrong question. It is
// best effort locally: a write already dispatched is not recalled.
func (a *AutosaveChannel) Cancel(sessionID, questionID string) {
	key := stateKey(sessionID, questionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.pending[key]; ok {
		p.timer.Stop()
		delete(a.pending, key)
		log.Printf("INFO: [AutosaveChannel] Cancelled pending autosave for session %s, question %s.", sessionID, questionID)
	}
}

// Flush forces an immediate synchronous save for (session, question),
// bypassing the debounce. It returns only after the upsert resolved or
// failed, so the persisted explanation is never behind the displayed one
// at submit time. Flushing with nothing pending and nothing to reconcile
// is a no-op.
func (a *AutosaveChannel) Flush(sessionID, questionID string) error {
	key := stateKey(sessionID, questionID)

	a.mu.Lock()
	p, ok := a.pending[key]
	if ok {
		p.timer.Stop()
		delete(a.pending, key)
	}
	a.mu.Unlock()

	state := a.store.Get(sessionID, questionID)
	if !ok && state.Synced() {
		return nil
	}

	// Always save the latest value, not a possibly stale snapshot.
	latest := &pendingSave{
		sessionID:   sessionID,
		questionID:  questionID,
		answer:      state.Answer,
		explanation: state.Explanation,
	}
	if entryRisk, resolved := a.riskPointsFor(questionID, state.Answer); resolved {
		latest.riskPoints = entryRisk
	}
	if err := a.save(latest); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	return nil
}

// save issues the upsert and, on success, records the reconciliation mark
// in the question state.
func (a *AutosaveChannel) save(p *pendingSave) error {
	err := a.answers.UpsertAnswer(&models.SessionAnswer{
		SessionID:   p.sessionID,
		QuestionID:  p.questionID,
		Answer:      p.answer,
		Explanation: p.explanation,
		RiskPoints:  p.riskPoints,
		AnsweredAt:  time.Now(),
	})
	if err != nil {
		return err
	}

	now := time.Now()
	a.store.Update(p.sessionID, p.questionID, func(state *models.QuestionState) {
		state.LastSyncedAt = &now
		state.LastSyncedExplanation = p.explanation
	})
	return nil
}
