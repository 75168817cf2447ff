package services

import (
	"fmt"
	"log"

	"github.com/lennart93/atad2-advisor-sub000/models"
)

// ConfirmRebranch commits a pending re-branch: every persisted answer
// strictly after the edited question is deleted from the answer store,
// the local flow is truncated, the cursor returns to the live edge, and
// normal answer advancement resumes with the new answer.
//
// The remote deletions run first. If any deletion fails the confirmation
// stays pending and nothing is truncated locally, so the local flow and
// the answer store never disagree after a retry.
func (n *flowNavigator) ConfirmRebranch(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	p := fs.pendingRebranch
	if p == nil {
		return nil, fmt.Errorf("session %s has no re-branch confirmation pending", sessionID)
	}

	for _, questionID := range p.DiscardQuestionIDs {
		if err := n.answers.DeleteAnswer(sessionID, questionID); err != nil {
			log.Printf("ERROR: [FlowNavigator] Session %s: re-branch deletion failed at question %s, keeping confirmation pending: %v", sessionID, questionID, err)
			return nil, fmt.Errorf("%w: failed to discard downstream answer for question %s: %v", ErrSubmit, questionID, err)
		}
	}

	fs.flow = fs.flow[:p.Index]
	fs.cursor = CursorLive
	fs.liveQuestionID = p.QuestionID
	fs.currentQuestionID = p.QuestionID
	fs.endReached = false
	fs.pendingRebranch = nil
	log.Printf("INFO: [FlowNavigator] Session %s: re-branch confirmed at question %s, discarded %d downstream answers.", sessionID, p.QuestionID, len(p.DiscardQuestionIDs))

	entry := n.catalog.FindEntry(p.QuestionID, p.NewAnswer)
	if entry == nil {
		// The new answer was validated at select time; a missing row now
		// means the catalog changed underneath us.
		return nil, &ValidationError{Fields: []string{"answer"}}
	}
	return n.applyAnswer(fs, entry)
}

// CancelRebranch abandons a pending re-branch: the displayed answer
// reverts to the previously recorded one and no flow mutation occurs.
func (n *flowNavigator) CancelRebranch(sessionID string) (*FlowOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fs, err := n.activeFlow(sessionID)
	if err != nil {
		return nil, err
	}
	p := fs.pendingRebranch
	if p == nil {
		return nil, fmt.Errorf("session %s has no re-branch confirmation pending", sessionID)
	}

	oldEntry := n.catalog.FindEntry(p.QuestionID, p.OldAnswer)
	n.store.Update(sessionID, p.QuestionID, func(state *models.QuestionState) {
		state.Answer = p.OldAnswer
		state.ContextPrompt = ""
		if oldEntry != nil {
			state.ShouldShowContext = oldEntry.RequiresExplanation
		}
	})
	fs.pendingRebranch = nil
	log.Printf("INFO: [FlowNavigator] Session %s: re-branch cancelled at question %s, answer reverted to %q.", sessionID, p.QuestionID, p.OldAnswer)
	return n.outcome(fs, OutcomeStayed, ""), nil
}
