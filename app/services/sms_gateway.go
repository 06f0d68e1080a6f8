package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
)

// SMS delivery statuses reported by the gateway
const (
	SMSStatusSent   = "sent"
	SMSStatusFailed = "failed"
)

// SMSResult is the gateway's verdict on one message
type SMSResult struct {
	Status           string `json:"status"`
	ProviderResponse string `json:"provider_response,omitempty"`
	ID               string `json:"id,omitempty"`
}

// Sent reports whether the gateway accepted the message
func (r *SMSResult) Sent() bool {
	return r != nil && r.Status == SMSStatusSent
}

// SMSGateway sends a single SMS. A non-nil error means the request never completed;
// provider rejections come back as a result with status "failed".
type SMSGateway interface {
	Send(ctx context.Context, phone, message string, customer *models.Customer) (*SMSResult, error)
}

// SMSGatewayImpl talks to an HTTP SMS provider
type SMSGatewayImpl struct {
	config  *config.SMSConfig
	client  *http.Client
	baseURL string
}

type smsSendRequest struct {
	To         string `json:"to"`
	Message    string `json:"message"`
	Sender     string `json:"sender,omitempty"`
	CustomerID *uint  `json:"customer_id,omitempty"`
	Source     string `json:"source"`
}

type smsSendResponse struct {
	Status    string `json:"status"`
	MessageID any    `json:"message_id"`
	Message   string `json:"message"`
}

// NewSMSGateway creates a gateway for cfg. Mock mode returns an in-memory gateway.
func NewSMSGateway(cfg *config.SMSConfig) SMSGateway {
	if cfg.MockMode() {
		return NewMockSMSGateway()
	}
	baseURL := cfg.ProviderDomain
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	return &SMSGatewayImpl{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Send posts one message to the provider
func (s *SMSGatewayImpl) Send(ctx context.Context, phone, message string, customer *models.Customer) (*SMSResult, error) {
	recipient := phone
	if full := utils.CanonicalStoragePhone(phone); full != nil {
		recipient = *full
	}

	payload := smsSendRequest{
		To:      recipient,
		Message: message,
		Sender:  s.config.SenderID,
		Source:  utils.PromoCampaignSource,
	}
	if customer != nil {
		payload.CustomerID = &customer.ID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/sms/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read SMS response: %w", err)
	}

	result := &SMSResult{Status: SMSStatusFailed, ProviderResponse: string(raw)}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, nil
	}

	var decoded smsSendResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return result, nil
	}
	if strings.EqualFold(decoded.Status, SMSStatusSent) || strings.EqualFold(decoded.Status, "accepted") {
		result.Status = SMSStatusSent
	}
	result.ID = messageIDString(decoded.MessageID)
	return result, nil
}

func messageIDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return fmt.Sprint(id)
	}
}

// MockSMSGateway implements SMSGateway for testing and local runs
type MockSMSGateway struct {
	mu       sync.Mutex
	Messages []MockSMSMessage
	// StatusFor overrides the status per phone; unknown phones are "sent"
	StatusFor map[string]string
	// ErrFor makes Send fail for the given phones
	ErrFor map[string]error
}

// MockSMSMessage represents a captured SMS
type MockSMSMessage struct {
	Phone      string
	Message    string
	CustomerID uint
}

// NewMockSMSGateway creates a new mock SMS gateway
func NewMockSMSGateway() *MockSMSGateway {
	return &MockSMSGateway{
		StatusFor: make(map[string]string),
		ErrFor:    make(map[string]error),
	}
}

// Send records the message and reports the configured outcome
func (m *MockSMSGateway) Send(ctx context.Context, phone, message string, customer *models.Customer) (*SMSResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.ErrFor[phone]; ok {
		return nil, err
	}

	msg := MockSMSMessage{Phone: phone, Message: message}
	if customer != nil {
		msg.CustomerID = customer.ID
	}
	m.Messages = append(m.Messages, msg)

	status := SMSStatusSent
	if s, ok := m.StatusFor[phone]; ok {
		status = s
	}
	return &SMSResult{Status: status, ID: fmt.Sprintf("mock-%d", len(m.Messages))}, nil
}

// SentTo returns the messages captured for phone
func (m *MockSMSGateway) SentTo(phone string) []MockSMSMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockSMSMessage
	for _, msg := range m.Messages {
		if msg.Phone == phone {
			out = append(out, msg)
		}
	}
	return out
}
