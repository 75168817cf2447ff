package database

import (
	"fmt"
	"log"

	"github.com/lennart93/atad2-advisor-sub000/models"

	"gorm.io/gorm"
)

// SeedCatalog populates the question catalog and the context-prompt table
// when they are empty. In production the catalog is maintained through the
// hosted database; this default set keeps a fresh (in-memory) instance
// usable out of the box.
func SeedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.QuestionOption{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count catalog rows: %w", err)
	}
	if count > 0 {
		log.Printf("INFO: [Database] Question catalog already contains %d rows, skipping seed.", count)
		return nil
	}

	options := defaultCatalog()
	if err := db.Create(&options).Error; err != nil {
		return fmt.Errorf("failed to seed question catalog: %w", err)
	}
	prompts := defaultContextPrompts()
	if err := db.Create(&prompts).Error; err != nil {
		return fmt.Errorf("failed to seed context prompts: %w", err)
	}
	log.Printf("INFO: [Database] Seeded %d catalog rows and %d context prompts.", len(options), len(prompts))
	return nil
}

// defaultCatalog defines the built-in ATAD2 question graph. Each row is one
// (question, answer) combination; NextQuestionID encodes the flow edge.
func defaultCatalog() []models.QuestionOption {
	return []models.QuestionOption{
		// Q1: scope
		{QuestionID: "1", AnswerOption: "Yes", NextQuestionID: "2", RiskPoints: 0, RequiresExplanation: false,
			QuestionTitle: "Group scope",
			QuestionText:  "Does the taxpayer form part of an international group with entities or permanent establishments in more than one jurisdiction?"},
		{QuestionID: "1", AnswerOption: "No", NextQuestionID: "end", RiskPoints: 0, RequiresExplanation: false,
			QuestionTitle: "Group scope",
			QuestionText:  "Does the taxpayer form part of an international group with entities or permanent establishments in more than one jurisdiction?"},
		{QuestionID: "1", AnswerOption: "Unknown", NextQuestionID: "2", RiskPoints: 1, RequiresExplanation: true,
			QuestionTitle: "Group scope",
			QuestionText:  "Does the taxpayer form part of an international group with entities or permanent establishments in more than one jurisdiction?"},

		// Q2: hybrid elements
		{QuestionID: "2", AnswerOption: "Yes", NextQuestionID: "3", RiskPoints: 2, RequiresExplanation: true,
			QuestionTitle: "Hybrid elements",
			DifficultTerm: "hybrid mismatch", TermExplanation: "A difference in the tax characterisation of an entity or instrument between two jurisdictions, leading to a deduction without inclusion or a double deduction.",
			QuestionText: "Are there payments to or from related entities in jurisdictions that characterise the instrument or the entity differently for tax purposes?"},
		{QuestionID: "2", AnswerOption: "No", NextQuestionID: "4", RiskPoints: 0, RequiresExplanation: false,
			QuestionTitle: "Hybrid elements",
			QuestionText:  "Are there payments to or from related entities in jurisdictions that characterise the instrument or the entity differently for tax purposes?"},
		{QuestionID: "2", AnswerOption: "Unknown", NextQuestionID: "3", RiskPoints: 1, RequiresExplanation: true,
			QuestionTitle: "Hybrid elements",
			QuestionText:  "Are there payments to or from related entities in jurisdictions that characterise the instrument or the entity differently for tax purposes?"},

		// Q3: deduction/no-inclusion outcome
		{QuestionID: "3", AnswerOption: "Yes", NextQuestionID: "5", RiskPoints: 3, RequiresExplanation: true,
			QuestionTitle: "Deduction without inclusion",
			DifficultTerm: "deduction without inclusion", TermExplanation: "A payment that is deductible in the payer jurisdiction while the corresponding income is not taxed in the recipient jurisdiction.",
			QuestionText: "Does a deduction-without-inclusion or double-deduction outcome arise from any of these payments?"},
		{QuestionID: "3", AnswerOption: "No", NextQuestionID: "4", RiskPoints: 0, RequiresExplanation: false,
			QuestionTitle: "Deduction without inclusion",
			QuestionText:  "Does a deduction-without-inclusion or double-deduction outcome arise from any of these payments?"},
		{QuestionID: "3", AnswerOption: "Unknown", NextQuestionID: "5", RiskPoints: 2, RequiresExplanation: true,
			QuestionTitle: "Deduction without inclusion",
			QuestionText:  "Does a deduction-without-inclusion or double-deduction outcome arise from any of these payments?"},

		// Q4: structured arrangements
		{QuestionID: "4", AnswerOption: "Yes", NextQuestionID: "5", RiskPoints: 2, RequiresExplanation: true,
			QuestionTitle: "Structured arrangements",
			DifficultTerm: "structured arrangement", TermExplanation: "An arrangement whose pricing or design indicates that a hybrid mismatch outcome was intended or factored in.",
			QuestionText: "Is the taxpayer party to any structured arrangement designed to produce a hybrid mismatch outcome?"},
		{QuestionID: "4", AnswerOption: "No", NextQuestionID: "end", RiskPoints: 0, RequiresExplanation: false,
			QuestionTitle: "Structured arrangements",
			QuestionText:  "Is the taxpayer party to any structured arrangement designed to produce a hybrid mismatch outcome?"},
		{QuestionID: "4", AnswerOption: "Unknown", NextQuestionID: "5", RiskPoints: 1, RequiresExplanation: true,
			QuestionTitle: "Structured arrangements",
			QuestionText:  "Is the taxpayer party to any structured arrangement designed to produce a hybrid mismatch outcome?"},

		// Q5: neutralisation
		{QuestionID: "5", AnswerOption: "Yes", NextQuestionID: "end", RiskPoints: 0, RequiresExplanation: true,
			QuestionTitle: "Neutralisation",
			QuestionText:  "Has the mismatch outcome already been neutralised by the primary rule in another jurisdiction?"},
		{QuestionID: "5", AnswerOption: "No", NextQuestionID: "end", RiskPoints: 3, RequiresExplanation: true,
			QuestionTitle: "Neutralisation",
			QuestionText:  "Has the mismatch outcome already been neutralised by the primary rule in another jurisdiction?"},
		{QuestionID: "5", AnswerOption: "Unknown", NextQuestionID: "end", RiskPoints: 2, RequiresExplanation: true,
			QuestionTitle: "Neutralisation",
			QuestionText:  "Has the mismatch outcome already been neutralised by the primary rule in another jurisdiction?"},
	}
}

func defaultContextPrompts() []models.ContextPromptRow {
	return []models.ContextPromptRow{
		{QuestionID: "1", AnswerTrigger: "Unknown", Prompt: "Which group entities or jurisdictions are you unsure about, and why?"},
		{QuestionID: "2", AnswerTrigger: "Yes", Prompt: "Which instruments or entities are characterised differently, and by which jurisdictions?"},
		{QuestionID: "2", AnswerTrigger: "Yes", Prompt: "Describe the payment flows involved and the related entities on each side."},
		{QuestionID: "2", AnswerTrigger: "Unknown", Prompt: "What information would you need to establish how the counterparty jurisdiction characterises the instrument?"},
		{QuestionID: "3", AnswerTrigger: "Yes", Prompt: "For which payments does the deduction arise, and where does the income go untaxed?"},
		{QuestionID: "3", AnswerTrigger: "Unknown", Prompt: "Which side of the payment is unclear: the deduction or the inclusion?"},
		{QuestionID: "4", AnswerTrigger: "Yes", Prompt: "What features of the arrangement indicate that the mismatch outcome was priced in or intended?"},
		{QuestionID: "5", AnswerTrigger: "No", Prompt: "Which jurisdiction would be expected to apply the primary rule, and why has it not?"},
		{QuestionID: "5", AnswerTrigger: "Unknown", Prompt: "What documentation from the counterparty jurisdiction is still outstanding?"},
	}
}
