package api

import (
	"errors"
	"net/http"

	"github.com/lennart93/atad2-advisor-sub000/models"
	"github.com/lennart93/atad2-advisor-sub000/repository"
	"github.com/lennart93/atad2-advisor-sub000/services"
	"github.com/lennart93/atad2-advisor-sub000/utils"

	"github.com/gin-gonic/gin"
)

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	navigator services.FlowNavigator
	catalog   services.CatalogService
	store     *services.StateStore
	contexts  *services.ContextLoader
	sessions  repository.SessionRepository
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(
	navigator services.FlowNavigator,
	catalog services.CatalogService,
	store *services.StateStore,
	contexts *services.ContextLoader,
	sessions repository.SessionRepository,
) *APIHandler {
	return &APIHandler{
		navigator: navigator,
		catalog:   catalog,
		store:     store,
		contexts:  contexts,
		sessions:  sessions,
	}
}

// questionView is the per-question payload the wizard renders: the
// question, its answer options in display order, the stored state and the
// context-prompt status.
type questionView struct {
	QuestionID string                  `json:"question_id"`
	Title      string                  `json:"question_title,omitempty"`
	Text       string                  `json:"question_text,omitempty"`
	Options    []models.QuestionOption `json:"options"`
	State      models.QuestionState    `json:"state"`
	Context    models.ContextState     `json:"context"`
}

func (h *APIHandler) buildQuestionView(sessionID, questionID string) *questionView {
	if questionID == "" {
		return nil
	}
	options := h.catalog.OptionsFor(questionID)
	view := &questionView{
		QuestionID: questionID,
		Options:    options,
		State:      h.store.Get(sessionID, questionID),
		Context:    h.contexts.State(sessionID, questionID),
	}
	if len(options) > 0 {
		view.Title = options[0].QuestionTitle
		view.Text = options[0].QuestionText
	}
	return view
}

// respondFlow writes the standard envelope for a flow outcome, including
// the view of the question the cursor now points at.
func (h *APIHandler) respondFlow(c *gin.Context, sessionID string, outcome *services.FlowOutcome) {
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": string(outcome.Kind),
		"data": gin.H{
			"outcome":  outcome,
			"question": h.buildQuestionView(sessionID, outcome.CurrentQuestionID),
		},
	})
}

// respondFlowError maps the service error taxonomy onto HTTP statuses.
func respondFlowError(c *gin.Context, err error) {
	if ve, ok := services.AsValidationError(err); ok {
		utils.SendJSONError(c, http.StatusBadRequest, "Some fields are missing or invalid.", err, ve.Error())
		return
	}
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.SendJSONError(c, http.StatusNotFound, "Assessment session not found.", err)
	case errors.Is(err, services.ErrSessionCompleted):
		utils.SendJSONError(c, http.StatusConflict, "This assessment has already been completed.", err)
	case errors.Is(err, services.ErrRebranchPending):
		utils.SendJSONError(c, http.StatusConflict, "Please confirm or cancel the pending answer change first.", err)
	case errors.Is(err, services.ErrNotAtFlowEnd):
		utils.SendJSONError(c, http.StatusBadRequest, "The assessment has not reached its final question yet.", err)
	case errors.Is(err, services.ErrCatalogLoad):
		utils.SendJSONError(c, http.StatusInternalServerError, "The questionnaire could not be loaded. The assessment cannot start.", err)
	case errors.Is(err, services.ErrSubmit):
		utils.SendJSONError(c, http.StatusInternalServerError, "Your answer could not be saved. Please try again.", err)
	default:
		utils.SendJSONError(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", err)
	}
}

// StartSessionHandler starts a new assessment session.
// POST /api/session/start
func (h *APIHandler) StartSessionHandler(c *gin.Context) {
	var input services.StartSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return
	}

	session, entry, err := h.navigator.StartSession(input)
	if err != nil {
		respondFlowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Assessment session started",
		"data": gin.H{
			"session":  session,
			"question": h.buildQuestionView(session.ID, entry.QuestionID),
		},
	})
}

// GetFlowHandler returns the current flow position for a session, resuming
// it from persisted answers when the in-memory state is gone.
// GET /api/session/:sessionID/flow
func (h *APIHandler) GetFlowHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	outcome, err := h.navigator.ResumeSession(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// SelectAnswerHandler records an answer for the current question.
// POST /api/session/:sessionID/answer
// Request body: { "answer": "Yes" }
func (h *APIHandler) SelectAnswerHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var req struct {
		Answer string `json:"answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request: answer is required.", err)
		return
	}

	outcome, err := h.navigator.SelectAnswer(sessionID, req.Answer)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// UpdateExplanationHandler is the autosave entry point for explanation
// edits. The local state updates synchronously; persistence is debounced.
// Rejected while a re-branch confirmation is pending.
// POST /api/session/:sessionID/explanation
// Request body: { "question_id": "3", "explanation": "..." }
func (h *APIHandler) UpdateExplanationHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var req struct {
		QuestionID  string `json:"question_id" binding:"required"`
		Explanation string `json:"explanation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request: question_id is required.", err)
		return
	}

	if err := h.navigator.UpdateExplanation(sessionID, req.QuestionID, req.Explanation); err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Explanation updated",
		"data":    h.store.Get(sessionID, req.QuestionID),
	})
}

// ContinueHandler is the explicit continue after the explanation step.
// POST /api/session/:sessionID/continue
func (h *APIHandler) ContinueHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	outcome, err := h.navigator.ContinueFromExplanation(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// BackHandler moves the cursor one answered question backward.
// POST /api/session/:sessionID/back
func (h *APIHandler) BackHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	outcome, err := h.navigator.GoBack(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// ForwardHandler moves the cursor one answered question forward.
// POST /api/session/:sessionID/forward
func (h *APIHandler) ForwardHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	outcome, err := h.navigator.GoForward(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// JumpHandler moves the cursor to an arbitrary answered question, or to
// the live edge when index is -1.
// POST /api/session/:sessionID/jump
// Request body: { "index": 2 }
func (h *APIHandler) JumpHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var req struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request: index is required.", err)
		return
	}

	outcome, err := h.navigator.JumpTo(sessionID, *req.Index)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// ConfirmRebranchHandler confirms discarding downstream answers after an
// edited answer changed the flow edge.
// POST /api/session/:sessionID/rebranch/confirm
func (h *APIHandler) ConfirmRebranchHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	outcome, err := h.navigator.ConfirmRebranch(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// CancelRebranchHandler abandons a pending answer change; the flow stays
// untouched.
// POST /api/session/:sessionID/rebranch/cancel
func (h *APIHandler) CancelRebranchHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	outcome, err := h.navigator.CancelRebranch(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.respondFlow(c, sessionID, outcome)
}

// FinishHandler completes the assessment and triggers the memorandum
// automation.
// POST /api/session/:sessionID/finish
func (h *APIHandler) FinishHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	session, err := h.navigator.Finish(sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Assessment completed",
		"data":    session,
	})
}

// GetContextHandler returns the context-prompt status for one question.
// GET /api/session/:sessionID/context?question_id=3
func (h *APIHandler) GetContextHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	questionID := c.Query("question_id")
	if questionID == "" {
		utils.SendJSONError(c, http.StatusBadRequest, "question_id query parameter is required.", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Context status",
		"data":    h.contexts.State(sessionID, questionID),
	})
}

// RetryContextHandler re-enters the loading state for a failed or timed
// out context-prompt lookup, using the currently recorded answer.
// POST /api/session/:sessionID/context/retry
// Request body: { "question_id": "3" }
func (h *APIHandler) RetryContextHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var req struct {
		QuestionID string `json:"question_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request: question_id is required.", err)
		return
	}

	answer := h.store.Get(sessionID, req.QuestionID).Answer
	if answer == "" {
		utils.SendJSONError(c, http.StatusBadRequest, "No answer is recorded for this question yet.", nil)
		return
	}
	h.contexts.Load(sessionID, req.QuestionID, answer)
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Context lookup restarted",
		"data":    h.contexts.State(sessionID, req.QuestionID),
	})
}
