package services

import (
	"fmt"
	"log"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"
)

// GoBack moves the cursor one flow entry backward. Any pending autosave
// for the question being left is cancelled before the cursor moves; this
// ordering is mandatory, not best effort, so a debounce timer can never
// write explanation text into the wrong question's record.
func (n *flowNavigator) GoBack(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	if fs.pendingRebranch != nil {
		return nil, ErrRebranchPending
	}

	var target int
	switch {
	case fs.cursor == CursorLive:
		if len(fs.flow) == 0 {
			return nil, fmt.Errorf("session %s has no answered questions to go back to", sessionID)
		}
		target = len(fs.flow) - 1
	case fs.cursor == 0:
		return nil, fmt.Errorf("session %s is already at the first answered question", sessionID)
	default:
		target = fs.cursor - 1
	}

	n.moveCursor(fs, target)
	return n.outcome(fs, OutcomeNavigated, ""), nil
}

// GoForward moves the cursor one flow entry forward, or back to the live
// edge when stepping past the last entry.
func (n *flowNavigator) GoForward(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	if fs.pendingRebranch != nil {
		return nil, ErrRebranchPending
	}
	if fs.cursor == CursorLive {
		return nil, fmt.Errorf("session %s is already at the live edge of the flow", sessionID)
	}

	target := fs.cursor + 1
	if target > len(fs.flow)-1 {
		target = CursorLive
	}
	n.moveCursor(fs, target)
	return n.outcome(fs, OutcomeNavigated, ""), nil
}

// JumpTo moves the cursor to an arbitrary flow index ("click a past
// question in the sidebar"), or to the live edge when index is CursorLive
// ("continue to next unanswered").
func (n *flowNavigator) JumpTo(sessionID string, index int) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	if fs.pendingRebranch != nil {
		return nil, ErrRebranchPending
	}
	if index != CursorLive && (index < 0 || index > len(fs.flow)-1) {
		return nil, &ValidationError{Fields: []string{"index"}}
	}

	n.moveCursor(fs, index)
	return n.outcome(fs, OutcomeNavigated, ""), nil
}

// moveCursor performs the cancel-before-navigate sequence shared by all
// history navigation: cancel the leaving question's pending autosave,
// clear its context status, then reposition. The flow length never
// changes. Callers hold n.mu.
func (n *flowNavigator) moveCursor(fs *flowState, target int) {
	if leaving := fs.currentQuestionID; leaving != "" {
		n.autosave.Cancel(fs.sessionID, leaving)
		n.contexts.Clear(fs.sessionID, leaving)
	}

	fs.cursor = target
	if target == CursorLive {
		fs.currentQuestionID = fs.liveQuestionID
	} else {
		fs.currentQuestionID = fs.flow[target].Question.QuestionID
	}
	log.Printf("INFO: [FlowNavigator] Session %s: cursor moved to %d (question %q).", fs.sessionID, target, fs.currentQuestionID)
}

// Finish marks the session completed. It is only permitted at the true end
// of the flow: the cursor is at the live edge after an end-edge answer, or
// at the last flow entry whose edge terminates the flow.
func (n *flowNavigator) Finish(sessionID string) (*models.AssessmentSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	if fs.pendingRebranch != nil {
		return nil, ErrRebranchPending
	}

	if !n.atFlowEnd(fs) {
		return nil, ErrNotAtFlowEnd
	}

	session, err := n.sessions.GetSessionByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s for completion: %w", sessionID, err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &now
	session.RiskPoints = totalRiskPoints(fs.flow)
	if err := n.sessions.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	fs.completed = true
	log.Printf("INFO: [FlowNavigator] Session %s completed with %d answered questions, %d risk points.", sessionID, len(fs.flow), session.RiskPoints)

	if n.notifier != nil {
		flowCopy := make([]models.FlowEntry, len(fs.flow))
		copy(flowCopy, fs.flow)
		go n.notifier.NotifyCompleted(session, flowCopy)
	}
	return session, nil
}

// atFlowEnd reports whether Finish is permitted from the current position.
func (n *flowNavigator) atFlowEnd(fs *flowState) bool {
	if len(fs.flow) == 0 {
		return false
	}
	last := fs.flow[len(fs.flow)-1]
	lastEntry := n.catalog.FindEntry(last.Question.QuestionID, last.Answer)
	if lastEntry == nil || n.resolveNext(lastEntry) != "" {
		return false
	}
	if fs.cursor == CursorLive {
		return fs.endReached
	}
	return fs.cursor == len(fs.flow)-1
}

// Flow returns a snapshot of the current flow position without mutating
// anything.
func (n *flowNavigator) Flow(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, ok := n.flows[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return n.outcome(fs, OutcomeStayed, ""), nil
}

// ResumeSession rebuilds the in-memory flow for a persisted in-progress
// session from its answer rows (ordered by answer time), so an assessment
// survives a process restart.
func (n *flowNavigator) ResumeSession(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if fs, ok := n.flows[sessionID]; ok && !fs.completed {
		return n.outcome(fs, OutcomeStayed, ""), nil
	}

	session, err := n.sessions.GetSessionByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status == models.SessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	rows, err := n.answers.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers for session %s: %w", sessionID, err)
	}

	fs := &flowState{
		sessionID:   sessionID,
		cursor:      CursorLive,
		warnedEmpty: make(map[string]bool),
	}
	var lastEntry *models.QuestionOption
	for _, row := range rows {
		entry := n.catalog.FindEntry(row.QuestionID, row.Answer)
		if entry == nil {
			log.Printf("WARN: [FlowNavigator] Session %s: persisted answer for question %s (%q) has no catalog row; skipping during resume.", sessionID, row.QuestionID, row.Answer)
			continue
		}
		fs.flow = append(fs.flow, models.FlowEntry{
			Question:   entry.Summary(),
			Answer:     entry.AnswerOption,
			RiskPoints: entry.RiskPoints,
		})
		syncedAt := row.AnsweredAt
		explanation := row.Explanation
		n.store.Update(sessionID, row.QuestionID, func(state *models.QuestionState) {
			state.Answer = entry.AnswerOption
			state.Explanation = explanation
			state.ShouldShowContext = entry.RequiresExplanation
			state.LastSyncedAt = &syncedAt
			state.LastSyncedExplanation = explanation
		})
		lastEntry = entry
	}

	if lastEntry == nil {
		entry, entryErr := n.catalog.EntryQuestion()
		if entryErr != nil {
			return nil, entryErr
		}
		fs.liveQuestionID = entry.QuestionID
	} else if next := n.resolveNext(lastEntry); next != "" {
		fs.liveQuestionID = next
	} else {
		fs.endReached = true
	}
	fs.currentQuestionID = fs.liveQuestionID

	n.flows[sessionID] = fs
	log.Printf("INFO: [FlowNavigator] Resumed session %s with %d answered questions (live question %q).", sessionID, len(fs.flow), fs.liveQuestionID)
	return n.outcome(fs, OutcomeStayed, ""), nil
}

// totalRiskPoints recomputes the session risk score from the flow, so
// re-branch truncation keeps the total correct.
func totalRiskPoints(flow []models.FlowEntry) int {
	total := 0
	for _, fe := range flow {
		total += fe.RiskPoints
	}
	return total
}
