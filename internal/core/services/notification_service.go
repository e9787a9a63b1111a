package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// NotificationService posts member-facing events to a webhook (e.g. a
// messaging bridge). Delivery is best-effort: failures are logged and
// never bubble into the calling flow.
type NotificationService struct {
	webhookURL string
	client     *http.Client
	enabled    bool
}

// NewNotificationService creates a new notification service
func NewNotificationService(webhookURL string) *NotificationService {
	if webhookURL == "" {
		log.Println("⚠️ NOTIFY_WEBHOOK_URL not set — notifications disabled")
	}
	return &NotificationService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    webhookURL != "",
	}
}

// IsEnabled checks if notification delivery is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// notifyPayload is the webhook message body
type notifyPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ============================================================
// Notification triggers
// ============================================================

// NotifyMemberJoined announces a new member to the group
func (s *NotificationService) NotifyMemberJoined(groupCode, displayName string) {
	s.dispatch("member_joined",
		fmt.Sprintf("👋 %s joined tanda %s", displayName, groupCode),
		map[string]interface{}{"group_code": groupCode, "member": displayName})
}

// NotifyContributionDue reminds members that a cycle payment is pending
func (s *NotificationService) NotifyContributionDue(groupCode string, cycle int, amount float64, currency string) {
	s.dispatch("contribution_due",
		fmt.Sprintf("⏰ Tanda %s: contribution of %.2f %s for cycle %d is due", groupCode, amount, currency, cycle),
		map[string]interface{}{"group_code": groupCode, "cycle": cycle, "amount": amount})
}

// NotifyPayoutSent announces a completed payout
func (s *NotificationService) NotifyPayoutSent(groupCode string, cycle int, recipient string, amount float64, currency string) {
	s.dispatch("payout_sent",
		fmt.Sprintf("🎉 Tanda %s: cycle %d payout of %.2f %s sent to %s", groupCode, cycle, amount, currency, recipient),
		map[string]interface{}{"group_code": groupCode, "cycle": cycle, "recipient": recipient, "amount": amount})
}

// NotifyGroupCompleted announces the end of a tanda's rotation
func (s *NotificationService) NotifyGroupCompleted(groupCode string) {
	s.dispatch("group_completed",
		fmt.Sprintf("🏁 Tanda %s completed its rotation", groupCode),
		map[string]interface{}{"group_code": groupCode})
}

// dispatch sends the payload in the background
func (s *NotificationService) dispatch(event, message string, data map[string]interface{}) {
	if !s.enabled {
		return
	}
	go func() {
		if err := s.post(notifyPayload{Event: event, Message: message, Data: data}); err != nil {
			log.Printf("⚠️ Notification %s failed: %v", event, err)
		}
	}()
}

func (s *NotificationService) post(payload notifyPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
