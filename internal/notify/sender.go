package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bagelworks/orderbot-backend/pkg/config"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

// Confirmation is the receipt payload sent after an order confirms.
type Confirmation struct {
	OrderNumber string  `json:"order_number"`
	ShortCode   string  `json:"short_code"`
	Customer    string  `json:"customer,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	OrderType   string  `json:"order_type"`
	Total       float64 `json:"total"`
}

// Sender delivers order confirmations. Delivery is best-effort: the
// order is already durable by the time a sender runs, so callers log
// failures and move on.
type Sender interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// HTTPSender posts confirmations to a messaging relay.
type HTTPSender struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

func NewHTTPSender(cfg config.NotifyConfig) (*HTTPSender, error) {
	if cfg.Endpoint == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notify endpoint required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPSender) SendConfirmation(ctx context.Context, c Confirmation) error {
	if c.Phone == "" && c.Email == "" {
		return nil
	}

	payload := struct {
		From string `json:"from,omitempty"`
		Confirmation
	}{From: s.from, Confirmation: c}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode confirmation")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build confirmation request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send confirmation")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("notify relay returned %d", resp.StatusCode))
	}
	return nil
}

// Noop drops confirmations; used when no relay is configured.
type Noop struct{}

func (Noop) SendConfirmation(context.Context, Confirmation) error { return nil }
