package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/clearroom/dataroom-api/utils"
)

// EmailService delivers invite links over an HTTP email API. Delivery is
// best-effort: the invite link is always returned to the creator, mail or not.
type EmailService struct {
	apiKey string
	from   string
	client *http.Client
}

func NewEmailService() *EmailService {
	from := os.Getenv("FROM_EMAIL")
	if from == "" {
		from = "Data Room <noreply@clearroom.dev>"
	}
	return &EmailService{
		apiKey: os.Getenv("RESEND_API_KEY"),
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether outbound mail is configured.
func (s *EmailService) Enabled() bool {
	return s.apiKey != ""
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendInviteEmail mails the invite link to the restricted recipient. The link
// contains the raw token; it goes only to the allowed email, never to a log.
func (s *EmailService) SendInviteEmail(toEmail, inviteLink string) error {
	if !s.Enabled() {
		return fmt.Errorf("email delivery is not configured")
	}

	htmlBody := fmt.Sprintf(`
<p>You have been invited to a shared data room.</p>
<p><a href="%s">Open the data room</a></p>
<p>This link may be limited in uses and expiry. If you were not expecting this
invitation you can ignore this email.</p>
`, inviteLink)

	payload, err := json.Marshal(emailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "You have been invited to a data room",
		HTML:    htmlBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.resend.com/emails", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		utils.Warnf("invite email to %s failed: %v", toEmail, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		utils.Warnf("email API returned status %d for %s", resp.StatusCode, toEmail)
		return fmt.Errorf("email API returned status: %d", resp.StatusCode)
	}
	return nil
}
