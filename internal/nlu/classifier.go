package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/pkg/config"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

// HTTPClassifier asks an external NLU service to label utterances the
// regex table couldn't. It is strictly best-effort: callers treat any
// error as IntentUnknown.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPClassifier(cfg config.NLUConfig) (*HTTPClassifier, error) {
	if cfg.Endpoint == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nlu endpoint required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPClassifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type classifyRequest struct {
	Utterance string          `json:"utterance"`
	Context   engine.Snapshot `json:"context"`
}

type classifyResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// knownIntents guards against the service inventing labels the router
// has no mapping for.
var knownIntents = map[engine.Intent]bool{
	engine.IntentGreeting: true, engine.IntentHours: true, engine.IntentLocation: true,
	engine.IntentHelp: true, engine.IntentOrderBagel: true, engine.IntentOrderDrink: true,
	engine.IntentModifyOrder: true, engine.IntentRemoveItem: true, engine.IntentViewOrder: true,
	engine.IntentCheckout: true, engine.IntentConfirm: true, engine.IntentCancel: true,
	engine.IntentSetDelivery: true, engine.IntentSetPickup: true, engine.IntentProvideAddress: true,
	engine.IntentAffirmative: true, engine.IntentNegative: true, engine.IntentDone: true,
}

func (c *HTTPClassifier) Classify(ctx context.Context, utterance string, snap engine.Snapshot) (engine.Intent, error) {
	body, err := json.Marshal(classifyRequest{Utterance: utterance, Context: snap})
	if err != nil {
		return engine.IntentUnknown, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode classify request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return engine.IntentUnknown, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build classify request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return engine.IntentUnknown, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call nlu service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.IntentUnknown, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("nlu service returned %d", resp.StatusCode))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return engine.IntentUnknown, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode nlu response")
	}

	intent := engine.Intent(out.Intent)
	if !knownIntents[intent] {
		return engine.IntentUnknown, nil
	}
	return intent, nil
}

// Noop never resolves anything; it stands in when no NLU service is
// configured.
type Noop struct{}

func (Noop) Classify(context.Context, string, engine.Snapshot) (engine.Intent, error) {
	return engine.IntentUnknown, nil
}
