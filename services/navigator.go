package services

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"
	"github.com/lennart93/atad2-advisor-sub000/repository"

	"github.com/google/uuid"
)

// CursorLive is the navigation cursor sentinel for "at the live/unanswered
// edge" of the flow. All other cursor values index into the flow list.
const CursorLive = -1

// StartSessionInput carries the taxpayer info required to start an
// assessment.
type StartSessionInput struct {
	TaxpayerName            string `json:"taxpayer_name"`
	TaxYear                 string `json:"tax_year"`
	NonCalendarFiscalPeriod bool   `json:"non_calendar_fiscal_period"`
	FiscalStartDate         string `json:"fiscal_start_date"` // YYYY-MM-DD, required when non-calendar
	FiscalEndDate           string `json:"fiscal_end_date"`
}

// OutcomeKind classifies what a flow operation did.
type OutcomeKind string

const (
	// OutcomeAdvanced: the flow moved to the next question.
	OutcomeAdvanced OutcomeKind = "advanced"
	// OutcomeAwaitExplanation: the answer requires an explanation; the flow
	// pauses until an explicit continue.
	OutcomeAwaitExplanation OutcomeKind = "await_explanation"
	// OutcomeExplanationReminder: the one-time soft-gate reminder for an
	// empty required explanation. A second continue passes through.
	OutcomeExplanationReminder OutcomeKind = "explanation_reminder"
	// OutcomeRebranchRequired: editing this answer would discard downstream
	// answers; user confirmation is required before anything mutates.
	OutcomeRebranchRequired OutcomeKind = "rebranch_required"
	// OutcomeEndReached: the answer's edge terminates the flow; Finish is
	// now available.
	OutcomeEndReached OutcomeKind = "end_reached"
	// OutcomeStayed: the operation completed without navigation (e.g. an
	// in-place edit of a historical answer).
	OutcomeStayed OutcomeKind = "stayed"
	// OutcomeNavigated: the cursor moved through existing history.
	OutcomeNavigated OutcomeKind = "navigated"
)

// RebranchPrompt describes a pending re-branch confirmation: changing the
// answer at Index would alter the downstream edge and discard the listed
// questions' answers.
type RebranchPrompt struct {
	QuestionID         string   `json:"question_id"`
	Index              int      `json:"index"`
	OldAnswer          string   `json:"old_answer"`
	NewAnswer          string   `json:"new_answer"`
	DiscardQuestionIDs []string `json:"discard_question_ids"`
}

// FlowOutcome is the navigator's answer to one event: the new observable
// flow position plus what happened.
type FlowOutcome struct {
	Kind              OutcomeKind        `json:"kind"`
	CurrentQuestionID string             `json:"current_question_id,omitempty"`
	Cursor            int                `json:"cursor"`
	Flow              []models.FlowEntry `json:"flow"`
	EndReached        bool               `json:"end_reached"`
	Rebranch          *RebranchPrompt    `json:"rebranch,omitempty"`
	Message           string             `json:"message,omitempty"`
}

// flowState is the navigator's in-memory state for one session.
//
// Invariant: cursor is CursorLive or a valid index into flow. At CursorLive
// the current question is liveQuestionID (empty once the flow has reached a
// terminal edge); at a history index it is flow[cursor]'s question.
type flowState struct {
	sessionID         string
	currentQuestionID string
	liveQuestionID    string
	flow              []models.FlowEntry
	cursor            int
	endReached        bool
	completed         bool
	warnedEmpty       map[string]bool // soft-gate bookkeeping per question
	pendingRebranch   *RebranchPrompt
}

// CompletionNotifier is told when a session finishes, e.g. to trigger the
// memorandum automation webhook. Failures are the notifier's problem.
type CompletionNotifier interface {
	NotifyCompleted(session *models.AssessmentSession, flow []models.FlowEntry)
}

// FlowNavigator is the core state machine of the questionnaire: it owns the
// current question, the answered flow and the navigation cursor, and it is
// the only component that decides movement through the question graph.
type FlowNavigator interface {
	StartSession(input StartSessionInput) (*models.AssessmentSession, *models.QuestionOption, error)
	ResumeSession(sessionID string) (*FlowOutcome, error)
	SelectAnswer(sessionID string, answer string) (*FlowOutcome, error)
	ContinueFromExplanation(sessionID string) (*FlowOutcome, error)
	UpdateExplanation(sessionID string, questionID string, text string) error
	GoBack(sessionID string) (*FlowOutcome, error)
	GoForward(sessionID string) (*FlowOutcome, error)
	JumpTo(sessionID string, index int) (*FlowOutcome, error)
	Finish(sessionID string) (*models.AssessmentSession, error)
	ConfirmRebranch(sessionID string) (*FlowOutcome, error)
	CancelRebranch(sessionID string) (*FlowOutcome, error)
	Flow(sessionID string) (*FlowOutcome, error)
}

type flowNavigator struct {
	catalog  CatalogService
	store    *StateStore
	contexts *ContextLoader
	autosave *AutosaveChannel
	sessions repository.SessionRepository
	answers  repository.AnswerRepository
	notifier CompletionNotifier // optional

	mu    sync.Mutex
	flows map[string]*flowState
}

// NewFlowNavigator wires the navigator to its collaborators. The notifier
// may be nil when no completion webhook is configured.
func NewFlowNavigator(
	catalog CatalogService,
	store *StateStore,
	contexts *ContextLoader,
	autosave *AutosaveChannel,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	notifier CompletionNotifier,
) FlowNavigator {
	n := &flowNavigator{
		catalog:  catalog,
		store:    store,
		contexts: contexts,
		autosave: autosave,
		sessions: sessions,
		answers:  answers,
		notifier: notifier,
		flows:    make(map[string]*flowState),
	}
	// The debounced explanation payload must carry the risk points of the
	// answer captured at schedule time.
	autosave.RiskResolver = func(questionID, answer string) (int, bool) {
		if entry := catalog.FindEntry(questionID, answer); entry != nil {
			return entry.RiskPoints, true
		}
		return 0, false
	}
	return n
}

// StartSession validates the taxpayer info, clears all prior session state
// and positions the flow at the catalog's entry question. No session is
// created on validation failure.
func (n *flowNavigator) StartSession(input StartSessionInput) (*models.AssessmentSession, *models.QuestionOption, error) {
	var fields []string
	if strings.TrimSpace(input.TaxpayerName) == "" {
		fields = append(fields, "taxpayer_name")
	}
	if strings.TrimSpace(input.TaxYear) == "" {
		fields = append(fields, "tax_year")
	}

	var fiscalStart, fiscalEnd *time.Time
	if input.NonCalendarFiscalPeriod {
		start, errStart := time.Parse("2006-01-02", input.FiscalStartDate)
		if errStart != nil {
			fields = append(fields, "fiscal_start_date")
		}
		end, errEnd := time.Parse("2006-01-02", input.FiscalEndDate)
		if errEnd != nil {
			fields = append(fields, "fiscal_end_date")
		}
		if errStart == nil && errEnd == nil {
			if start.After(end) {
				fields = append(fields, "fiscal_start_date", "fiscal_end_date")
			} else {
				fiscalStart, fiscalEnd = &start, &end
			}
		}
	}
	if len(fields) > 0 {
		log.Printf("INFO: [FlowNavigator] StartSession rejected, invalid fields: %s", strings.Join(fields, ", "))
		return nil, nil, &ValidationError{Fields: fields}
	}

	entry, err := n.catalog.EntryQuestion()
	if err != nil {
		return nil, nil, err
	}

	session := &models.AssessmentSession{
		ID:              uuid.NewString(),
		TaxpayerName:    strings.TrimSpace(input.TaxpayerName),
		TaxYear:         strings.TrimSpace(input.TaxYear),
		FiscalStartDate: fiscalStart,
		FiscalEndDate:   fiscalEnd,
		Status:          models.SessionStatusInProgress,
		CreatedAt:       time.Now(),
	}
	if err := n.sessions.CreateSession(session); err != nil {
		return nil, nil, fmt.Errorf("failed to create assessment session: %w", err)
	}

	// A brand-new assessment starts from a clean slate: wipe every question
	// state so nothing bleeds over from a prior session in this process.
	n.store.ClearAll()

	n.mu.Lock()
	n.flows = make(map[string]*flowState)
	n.flows[session.ID] = &flowState{
		sessionID:         session.ID,
		currentQuestionID: entry.QuestionID,
		liveQuestionID:    entry.QuestionID,
		cursor:            CursorLive,
		warnedEmpty:       make(map[string]bool),
	}
	n.mu.Unlock()

	log.Printf("INFO: [FlowNavigator] Started session %s for taxpayer %q at entry question %s.", session.ID, session.TaxpayerName, entry.QuestionID)
	return session, entry, nil
}

// SelectAnswer records an answer for the current question and decides the
// immediate consequence: auto-advance (no explanation required, live
// cursor), pause for an explanation, or a re-branch confirmation when
// editing history would change the downstream edge.
func (n *flowNavigator) SelectAnswer(sessionID string, answer string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	if fs.pendingRebranch != nil {
		return nil, ErrRebranchPending
	}

	questionID := fs.currentQuestionID
	if questionID == "" {
		return nil, fmt.Errorf("no active question for session %s: flow has reached its end", sessionID)
	}

	entry := n.catalog.FindEntry(questionID, answer)
	if entry == nil {
		log.Printf("INFO: [FlowNavigator] Session %s: answer %q is not a catalog option for question %s.", sessionID, answer, questionID)
		return nil, &ValidationError{Fields: []string{"answer"}}
	}

	previousAnswer := n.store.Get(sessionID, questionID).Answer
	n.store.Update(sessionID, questionID, func(state *models.QuestionState) {
		state.Answer = answer
		state.ShouldShowContext = entry.RequiresExplanation
		if previousAnswer != answer {
			state.ContextPrompt = ""
		}
	})

	// Editing a past answer: when the new edge diverges from the recorded
	// one and later entries exist, nothing mutates until the user confirms
	// the re-branch.
	if fs.cursor != CursorLive {
		recorded := fs.flow[fs.cursor].Answer
		oldEdge := n.edgeFor(questionID, recorded)
		newEdge := n.edgeFor(questionID, answer)
		if oldEdge != newEdge && fs.cursor < len(fs.flow)-1 {
			discard := make([]string, 0, len(fs.flow)-fs.cursor-1)
			for _, fe := range fs.flow[fs.cursor+1:] {
				discard = append(discard, fe.Question.QuestionID)
			}
			fs.pendingRebranch = &RebranchPrompt{
				QuestionID:         questionID,
				Index:              fs.cursor,
				OldAnswer:          recorded,
				NewAnswer:          answer,
				DiscardQuestionIDs: discard,
			}
			log.Printf("INFO: [FlowNavigator] Session %s: editing question %s from %q to %q would discard %d downstream answers; awaiting confirmation.", sessionID, questionID, recorded, answer, len(discard))
			return n.outcome(fs, OutcomeRebranchRequired, ""), nil
		}
	}

	return n.applyAnswer(fs, entry)
}

// applyAnswer runs the post-guard part of answer selection. For answers
// requiring an explanation it starts the context lookup and pauses;
// otherwise it persists immediately and advances when at the live edge.
func (n *flowNavigator) applyAnswer(fs *flowState, entry *models.QuestionOption) (*FlowOutcome, error) {
	if entry.RequiresExplanation {
		n.contexts.Load(fs.sessionID, entry.QuestionID, entry.AnswerOption)
		return n.outcome(fs, OutcomeAwaitExplanation, ""), nil
	}

	state := n.store.Get(fs.sessionID, entry.QuestionID)
	if err := n.persistAnswer(fs.sessionID, entry, state.Explanation); err != nil {
		return nil, err
	}
	n.recordFlowEntry(fs, entry)

	if fs.cursor == CursorLive {
		return n.advance(fs, entry), nil
	}
	n.retargetLiveEdge(fs, entry)
	return n.outcome(fs, OutcomeStayed, ""), nil
}

// ContinueFromExplanation is the explicit continue after the explanation
// step. Required-but-empty explanations get a one-time friendly reminder; a
// second attempt passes through (a product decision, not a validation gap).
func (n *flowNavigator) ContinueFromExplanation(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	if fs.pendingRebranch != nil {
		return nil, ErrRebranchPending
	}

	questionID := fs.currentQuestionID
	if questionID == "" {
		return nil, fmt.Errorf("no active question for session %s: flow has reached its end", sessionID)
	}

	state := n.store.Get(sessionID, questionID)
	if state.Answer == "" {
		return nil, &ValidationError{Fields: []string{"answer"}}
	}
	entry := n.catalog.FindEntry(questionID, state.Answer)
	if entry == nil {
		return nil, &ValidationError{Fields: []string{"answer"}}
	}

	if entry.RequiresExplanation && strings.TrimSpace(state.Explanation) == "" && !fs.warnedEmpty[questionID] {
		fs.warnedEmpty[questionID] = true
		log.Printf("INFO: [FlowNavigator] Session %s: empty explanation for question %s, issuing one-time reminder.", sessionID, questionID)
		return n.outcome(fs, OutcomeExplanationReminder, "An explanation helps substantiate this answer in the memorandum. Continue again to proceed without one."), nil
	}

	// Flush before advancing so the persisted explanation is never behind
	// the displayed one at submit time.
	if err := n.autosave.Flush(sessionID, questionID); err != nil {
		log.Printf("ERROR: [FlowNavigator] Session %s: failed to persist answer for question %s on continue: %v", sessionID, questionID, err)
		return nil, err
	}
	n.recordFlowEntry(fs, entry)

	if fs.cursor == CursorLive {
		return n.advance(fs, entry), nil
	}
	n.retargetLiveEdge(fs, entry)
	return n.outcome(fs, OutcomeStayed, ""), nil
}

// UpdateExplanation is the guarded entry point for explanation edits: the
// local state updates synchronously and persistence is debounced. Edits are
// rejected while a re-branch confirmation is outstanding, so the
// unconfirmed answer can never ride along on an explanation upsert.
func (n *flowNavigator) UpdateExplanation(sessionID, questionID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return err
	}
	if fs.pendingRebranch != nil {
		return ErrRebranchPending
	}

	n.autosave.UpdateExplanation(sessionID, questionID, text)
	return nil
}

// advance follows the catalog edge from an answered entry at the live edge.
func (n *flowNavigator) advance(fs *flowState, entry *models.QuestionOption) *FlowOutcome {
	next := n.resolveNext(entry)
	if next == "" {
		fs.endReached = true
		fs.liveQuestionID = ""
		fs.currentQuestionID = ""
		log.Printf("INFO: [FlowNavigator] Session %s: flow reached its end after question %s.", fs.sessionID, entry.QuestionID)
		return n.outcome(fs, OutcomeEndReached, "")
	}
	fs.liveQuestionID = next
	fs.currentQuestionID = next
	return n.outcome(fs, OutcomeAdvanced, "")
}

// retargetLiveEdge recomputes the live edge after the last flow entry was
// rewritten in place. Without it, editing the tail answer to a divergent
// edge would leave the next unanswered question (or the flow end) computed
// from the old answer. A no-op for edits of non-tail entries, which go
// through the re-branch confirmation instead.
func (n *flowNavigator) retargetLiveEdge(fs *flowState, entry *models.QuestionOption) {
	if fs.cursor != len(fs.flow)-1 {
		return
	}
	next := n.resolveNext(entry)
	if next == "" {
		fs.endReached = true
		fs.liveQuestionID = ""
		return
	}
	fs.endReached = false
	fs.liveQuestionID = next
}

// resolveNext returns the next question ID for an answered entry, or ""
// when the flow ends there. A dangling edge (a next question with no
// "Yes"-rooted catalog row) is treated as flow end rather than a failure;
// it is logged, never shown to the user as an error.
func (n *flowNavigator) resolveNext(entry *models.QuestionOption) string {
	if entry.EndsFlow() {
		return ""
	}
	if n.catalog.FindEntry(entry.NextQuestionID, models.AnswerYes) == nil {
		log.Printf("WARN: [FlowNavigator] Broken edge: question %s answer %q points at question %s which has no catalog rows. Treating as flow end.", entry.QuestionID, entry.AnswerOption, entry.NextQuestionID)
		return ""
	}
	return entry.NextQuestionID
}

// edgeFor resolves the raw next-question edge recorded in the catalog for
// (question, answer); "" when the pair is unknown.
func (n *flowNavigator) edgeFor(questionID, answer string) string {
	if entry := n.catalog.FindEntry(questionID, answer); entry != nil {
		return entry.NextQuestionID
	}
	return ""
}

// persistAnswer upserts the answer row together with its explanation and
// derived risk points. Failure is a submit error: the flow must not
// advance past an unpersisted answer.
func (n *flowNavigator) persistAnswer(sessionID string, entry *models.QuestionOption, explanation string) error {
	err := n.answers.UpsertAnswer(&models.SessionAnswer{
		SessionID:   sessionID,
		QuestionID:  entry.QuestionID,
		Answer:      entry.AnswerOption,
		Explanation: explanation,
		RiskPoints:  entry.RiskPoints,
		AnsweredAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	now := time.Now()
	n.store.Update(sessionID, entry.QuestionID, func(state *models.QuestionState) {
		state.LastSyncedAt = &now
		state.LastSyncedExplanation = explanation
	})
	return nil
}

// recordFlowEntry appends or replaces the flow entry for an answered
// question. At the live edge the entry is appended (or replaces the tail
// entry when the same question is re-answered); at a history cursor the
// entry at the cursor is replaced in place. Entries are never reordered.
func (n *flowNavigator) recordFlowEntry(fs *flowState, entry *models.QuestionOption) {
	fe := models.FlowEntry{
		Question:   entry.Summary(),
		Answer:     entry.AnswerOption,
		RiskPoints: entry.RiskPoints,
	}
	if fs.cursor == CursorLive {
		if last := len(fs.flow) - 1; last >= 0 && fs.flow[last].Question.QuestionID == entry.QuestionID {
			fs.flow[last] = fe
			return
		}
		fs.flow = append(fs.flow, fe)
		return
	}
	fs.flow[fs.cursor] = fe
}

// activeFlow returns the in-progress flow state for a session. Callers
// hold n.mu.
func (n *flowNavigator) activeFlow(sessionID string) (*flowState, error) {
	fs, ok := n.flows[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if fs.completed {
		return nil, ErrSessionCompleted
	}
	return fs, nil
}

// outcome snapshots the observable flow position. Callers hold n.mu.
func (n *flowNavigator) outcome(fs *flowState, kind OutcomeKind, message string) *FlowOutcome {
	flowCopy := make([]models.FlowEntry, len(fs.flow))
	copy(flowCopy, fs.flow)
	return &FlowOutcome{
		Kind:              kind,
		CurrentQuestionID: fs.currentQuestionID,
		Cursor:            fs.cursor,
		Flow:              flowCopy,
		EndReached:        fs.endReached,
		Rebranch:          fs.pendingRebranch,
		Message:           message,
	}
}
