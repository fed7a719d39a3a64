package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/centre-jeunesse/backend/config"
)

// SMSSender posts short notification texts to an HTTP SMS gateway.
type SMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

// NewSMSSender creates an SMS sender, or nil when no gateway is configured.
func NewSMSSender(cfg config.SMSConfig) *SMSSender {
	if cfg.APIURL == "" {
		return nil
	}
	return &SMSSender{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send delivers one SMS.
func (s *SMSSender) Send(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(map[string]string{
		"to":   phone,
		"from": s.cfg.Sender,
		"text": text,
	})
	if err != nil {
		return err
	}
	return s.post(ctx, s.cfg.APIURL, s.cfg.APIKey, body)
}

func (s *SMSSender) post(ctx context.Context, url, key string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway status: %d", resp.StatusCode)
	}
	return nil
}

// WhatsAppSender posts notification texts to the WhatsApp Business API.
type WhatsAppSender struct {
	cfg    config.WhatsAppConfig
	client *http.Client
}

// NewWhatsAppSender creates a WhatsApp sender, or nil when not configured.
func NewWhatsAppSender(cfg config.WhatsAppConfig) *WhatsAppSender {
	if cfg.APIURL == "" {
		return nil
	}
	return &WhatsAppSender{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send delivers one WhatsApp text message.
func (w *WhatsAppSender) Send(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "text",
		"text":              map[string]string{"body": text},
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", w.cfg.APIURL, w.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway status: %d", resp.StatusCode)
	}
	return nil
}
