package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orgolab/labstock-backend/pkg/config"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

// Mailer sends quote request emails through the SendGrid v3 API. A nil
// Mailer drops messages, which keeps email optional in dev setups.
type Mailer struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
	logg       *logger.Logger
}

// New builds a Mailer from config. Returns nil when no API key is set.
func New(cfg config.EmailConfig, logg *logger.Logger) *Mailer {
	if cfg.APIKey == "" {
		return nil
	}
	return &Mailer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		logg:       logg,
	}
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers a plain-text message to every recipient.
func (m *Mailer) Send(ctx context.Context, recipients []string, subject, body string) error {
	if m == nil {
		return nil
	}
	if len(recipients) == 0 {
		return errors.New("at least one recipient is required")
	}
	if m.from == "" {
		return errors.New("sender address is not configured")
	}

	to := make([]emailAddress, 0, len(recipients))
	for _, addr := range recipients {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			to = append(to, emailAddress{Email: trimmed})
		}
	}
	if len(to) == 0 {
		return errors.New("at least one recipient is required")
	}

	payload := sendRequest{
		Personalizations: []personalization{{To: to}},
		From:             emailAddress{Email: m.from},
		Subject:          subject,
		Content:          []content{{Type: "text/plain", Value: body}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("mail send failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("mail send failed: %s", resp.Status)
	}
	return nil
}
