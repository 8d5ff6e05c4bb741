package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoSender sends e-mails through the Brevo transactional API v3
type BrevoSender struct {
	httpClient *http.Client
	apiKey     string
	fromEmail  string
	fromName   string
	endpoint   string
}

// BrevoOption configures BrevoSender
type BrevoOption func(*BrevoSender)

// WithEndpoint overrides the API URL (used in tests)
func WithEndpoint(endpoint string) BrevoOption {
	return func(s *BrevoSender) {
		s.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) BrevoOption {
	return func(s *BrevoSender) {
		s.httpClient = c
	}
}

// NewBrevoSender creates Brevo sender
func NewBrevoSender(apiKey, fromEmail, fromName string, opts ...BrevoOption) (*BrevoSender, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("brevo api key and sender email are required")
	}

	s := &BrevoSender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		endpoint:   brevoAPIURL,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	To          []brevoAddress `json:"to"`
}

// Send delivers the message
func (s *BrevoSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" || msg.Subject == "" || msg.HTML == "" {
		return errors.New("recipient, subject and html content cannot be empty")
	}

	body, err := json.Marshal(brevoRequest{
		Sender:      brevoAddress{Email: s.fromEmail, Name: s.fromName},
		To:          []brevoAddress{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request for Brevo: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brevo send email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Тело ошибки только для диагностики, ограничиваем размер
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo API error: status %d, body: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}

	return nil
}
