package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/lennart93/atad2-advisor-sub000/models"
)

// MemoWebhook triggers the external memorandum automation when a session
// completes. It posts the session summary to the configured webhook URL;
// document generation itself happens on the other side. Delivery is fire
// and forget: a failed trigger is logged, never surfaced to the user.
type MemoWebhook struct {
	url    string
	client *http.Client
}

// NewMemoWebhook creates a MemoWebhook for the given URL. Returns nil when
// the URL is empty, which disables the trigger entirely.
func NewMemoWebhook(url string) *MemoWebhook {
	if url == "" {
		log.Println("INFO: [MemoWebhook] No webhook URL configured; memorandum trigger disabled.")
		return nil
	}
	return &MemoWebhook{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// memoPayload is the minimal contract the flow engine owes the automation:
// session info, the answered flow in order, and the risk total.
type memoPayload struct {
	SessionID    string             `json:"session_id"`
	TaxpayerName string             `json:"taxpayer_name"`
	TaxYear      string             `json:"tax_year"`
	RiskPoints   int                `json:"risk_points"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	Flow         []models.FlowEntry `json:"flow"`
}

// NotifyCompleted implements CompletionNotifier.
func (m *MemoWebhook) NotifyCompleted(session *models.AssessmentSession, flow []models.FlowEntry) {
	payload := memoPayload{
		SessionID:    session.ID,
		TaxpayerName: session.TaxpayerName,
		TaxYear:      session.TaxYear,
		RiskPoints:   session.RiskPoints,
		CompletedAt:  session.CompletedAt,
		Flow:         flow,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: [MemoWebhook] Failed to marshal memo payload for session %s: %v", session.ID, err)
		return
	}

	resp, err := m.client.Post(m.url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("ERROR: [MemoWebhook] Failed to trigger memorandum webhook for session %s: %v", session.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("ERROR: [MemoWebhook] Memorandum webhook for session %s returned status %d.", session.ID, resp.StatusCode)
		return
	}
	log.Printf("INFO: [MemoWebhook] Memorandum generation triggered for session %s.", session.ID)
}
