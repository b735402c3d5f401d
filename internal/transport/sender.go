package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"herald/internal/herr"
	"herald/internal/logging"
)

// Sender delivers one composed text to a recipient or group.
type Sender interface {
	Send(ctx context.Context, recipient, text string) (deliveryID string, err error)
}

// HTTPSenderConfig configures the outbound transport API client.
type HTTPSenderConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

// HTTPSender posts messages to the external transport API. Delivery retries
// are the transport's own concern, not herald's.
type HTTPSender struct {
	cfg    HTTPSenderConfig
	http   *http.Client
	logger logging.Logger
}

// NewHTTPSender constructs the transport API client.
func NewHTTPSender(cfg HTTPSenderConfig, logger logging.Logger) *HTTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPSender{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logging.OrNop(logger),
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, recipient, text string) (string, error) {
	body, err := json.Marshal(sendRequest{To: recipient, Body: text})
	if err != nil {
		return "", fmt.Errorf("marshal send request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AuthToken)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", &herr.DeliveryError{Recipient: recipient, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &herr.DeliveryError{
			Recipient: recipient,
			Err:       herr.FromStatusCode(resp.StatusCode, fmt.Errorf("send status %d", resp.StatusCode)),
		}
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Delivery succeeded; a missing id is not worth failing the turn.
		s.logger.Warn("decode delivery response: %v", err)
		return "", nil
	}
	return parsed.ID, nil
}

// OutboundMessage is one recorded delivery for tests.
type OutboundMessage struct {
	Recipient string
	Text      string
}

// MemorySender records deliveries in memory.
type MemorySender struct {
	mu   sync.Mutex
	Err  error
	sent []OutboundMessage
}

// NewMemorySender constructs a test sender.
func NewMemorySender() *MemorySender { return &MemorySender{} }

// Send implements Sender.
func (s *MemorySender) Send(_ context.Context, recipient, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", &herr.DeliveryError{Recipient: recipient, Err: s.Err}
	}
	s.sent = append(s.sent, OutboundMessage{Recipient: recipient, Text: text})
	return fmt.Sprintf("mem-%d", len(s.sent)), nil
}

// Sent returns a copy of all recorded deliveries.
func (s *MemorySender) Sent() []OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboundMessage(nil), s.sent...)
}
