package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bagelworks/orderbot-backend/internal/chat"
	"github.com/bagelworks/orderbot-backend/internal/engine"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
)

type testChatService struct {
	processFn     func(ctx context.Context, input chat.TurnInput) (*chat.TurnResult, error)
	getSessionFn  func(ctx context.Context, sessionID string) (*engine.OrderState, error)
	suggestionsFn func(ctx context.Context, sessionID string) ([]string, error)
}

func (s *testChatService) ProcessTurn(ctx context.Context, input chat.TurnInput) (*chat.TurnResult, error) {
	if s.processFn != nil {
		return s.processFn(ctx, input)
	}
	return nil, nil
}

func (s *testChatService) GetSession(ctx context.Context, sessionID string) (*engine.OrderState, error) {
	if s.getSessionFn != nil {
		return s.getSessionFn(ctx, sessionID)
	}
	return nil, nil
}

func (s *testChatService) Suggestions(ctx context.Context, sessionID string) ([]string, error) {
	if s.suggestionsFn != nil {
		return s.suggestionsFn(ctx, sessionID)
	}
	return nil, nil
}

func testLog() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestChatTurnSuccess(t *testing.T) {
	svc := &testChatService{
		processFn: func(_ context.Context, input chat.TurnInput) (*chat.TurnResult, error) {
			if input.SessionID != "s1" || input.Utterance != "hi" {
				t.Fatalf("unexpected input %+v", input)
			}
			return &chat.TurnResult{
				SessionID:   "s1",
				Reply:       "Welcome in!",
				Actions:     []engine.Action{{Type: engine.ActionConversation}},
				Suggestions: []string{"Pickup", "Delivery"},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/turns",
		strings.NewReader(`{"session_id":"s1","utterance":"hi"}`))
	resp := httptest.NewRecorder()
	ChatTurn(svc, testLog())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data chat.TurnResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Reply != "Welcome in!" {
		t.Fatalf("unexpected reply %q", envelope.Data.Reply)
	}
	if len(envelope.Data.Suggestions) != 2 {
		t.Fatalf("unexpected suggestions %v", envelope.Data.Suggestions)
	}
}

func TestChatTurnRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/turns",
		strings.NewReader(`{"session_id":"s1"}`))
	resp := httptest.NewRecorder()
	ChatTurn(&testChatService{}, testLog())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if _, ok := envelope.Error.Details["utterance"]; !ok {
		t.Fatalf("details missing utterance field: %v", envelope.Error.Details)
	}
}

func TestChatTurnRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/turns",
		strings.NewReader(`{"session_id":"s1","utterance":"hi","admin":true}`))
	resp := httptest.NewRecorder()
	ChatTurn(&testChatService{}, testLog())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestChatTurnServiceErrorPassesThrough(t *testing.T) {
	svc := &testChatService{
		processFn: func(context.Context, chat.TurnInput) (*chat.TurnResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "session store down")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/turns",
		strings.NewReader(`{"session_id":"s1","utterance":"hi"}`))
	resp := httptest.NewRecorder()
	ChatTurn(svc, testLog())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestChatSessionNotFound(t *testing.T) {
	svc := &testChatService{
		getSessionFn: func(_ context.Context, sessionID string) (*engine.OrderState, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		},
	}

	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/ghost", nil), "sessionID", "ghost")
	resp := httptest.NewRecorder()
	ChatSession(svc, testLog())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestChatSessionSuccess(t *testing.T) {
	state := engine.NewOrderState("s1")
	svc := &testChatService{
		getSessionFn: func(_ context.Context, sessionID string) (*engine.OrderState, error) {
			if sessionID != "s1" {
				t.Fatalf("unexpected session %q", sessionID)
			}
			return state, nil
		},
	}

	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/s1", nil), "sessionID", "s1")
	resp := httptest.NewRecorder()
	ChatSession(svc, testLog())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data engine.OrderState `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.SessionID != "s1" {
		t.Fatalf("unexpected session %q", envelope.Data.SessionID)
	}
}

func TestChatSuggestionsSuccess(t *testing.T) {
	svc := &testChatService{
		suggestionsFn: func(_ context.Context, sessionID string) ([]string, error) {
			return []string{"Toasted", "Not toasted"}, nil
		},
	}

	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/s1/suggestions", nil), "sessionID", "s1")
	resp := httptest.NewRecorder()
	ChatSuggestions(svc, testLog())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string][]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data["suggestions"]) != 2 {
		t.Fatalf("unexpected suggestions %v", envelope.Data)
	}
}

func TestChatTurnNilService(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/turns",
		strings.NewReader(`{"session_id":"s1","utterance":"hi"}`))
	resp := httptest.NewRecorder()
	ChatTurn(nil, testLog())(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
