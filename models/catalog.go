package models

// Answer labels used throughout the questionnaire. The catalog may carry
// other labels; these three get a fixed display order (see CatalogService).
const (
	AnswerYes     = "Yes"
	AnswerNo      = "No"
	AnswerUnknown = "Unknown"
)

// NextQuestionEnd is the sentinel value of NextQuestionID marking the end
// of the questionnaire flow for a given answer.
const NextQuestionEnd = "end"

// EntryQuestionID is the catalog convention for the first question of an
// assessment: the row with question_id "1" and answer_option "Yes".
const EntryQuestionID = "1"

// QuestionOption is one row of the question catalog: the combination of a
// question and one of its allowed answers, together with the flow edge and
// metadata for that combination. Multiple rows share a QuestionID (one per
// allowed answer); the lookup key is (QuestionID, AnswerOption).
// Rows are immutable for the lifetime of a session.
type QuestionOption struct {
	ID                  uint   `json:"-" gorm:"primaryKey"`
	QuestionID          string `json:"question_id" gorm:"index:idx_question_answer,unique"`
	AnswerOption        string `json:"answer_option" gorm:"index:idx_question_answer,unique"`
	NextQuestionID      string `json:"next_question_id"` // "", "end", or a question ID
	RiskPoints          int    `json:"risk_points"`
	RequiresExplanation bool   `json:"requires_explanation"`
	DifficultTerm       string `json:"difficult_term,omitempty"`   // tooltip term, optional
	TermExplanation     string `json:"term_explanation,omitempty"` // tooltip body, optional
	QuestionTitle       string `json:"question_title,omitempty"`
	QuestionText        string `json:"question_text"`
}

// EndsFlow reports whether this option's edge terminates the questionnaire.
func (q *QuestionOption) EndsFlow() bool {
	return q.NextQuestionID == "" || q.NextQuestionID == NextQuestionEnd
}

// QuestionSummary is the subset of a QuestionOption carried in flow entries
// and progress listings.
type QuestionSummary struct {
	QuestionID    string `json:"question_id"`
	QuestionTitle string `json:"question_title,omitempty"`
	QuestionText  string `json:"question_text"`
}

// Summary extracts the flow-entry view of a catalog row.
func (q *QuestionOption) Summary() QuestionSummary {
	return QuestionSummary{
		QuestionID:    q.QuestionID,
		QuestionTitle: q.QuestionTitle,
		QuestionText:  q.QuestionText,
	}
}

// FlowEntry is one answered question in a session's flow. Entries are
// appended or replaced, never reordered; their order doubles as the
// displayed progress list.
type FlowEntry struct {
	Question   QuestionSummary `json:"question"`
	Answer     string          `json:"answer"`
	RiskPoints int             `json:"risk_points"`
}

// ContextPromptRow is a stored follow-up prompt candidate for a specific
// (question, answer) combination. Zero or more rows may exist per pair;
// the loader picks one deterministically per session.
type ContextPromptRow struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	QuestionID    string `json:"question_id" gorm:"index:idx_prompt_trigger"`
	AnswerTrigger string `json:"answer_trigger" gorm:"index:idx_prompt_trigger"`
	Prompt        string `json:"prompt"`
}
