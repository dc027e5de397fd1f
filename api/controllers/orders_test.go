package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/pkg/db/models"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/pagination"
)

type testOrderRepo struct {
	listRecentFn func(ctx context.Context, params pagination.Params) ([]models.ConfirmedOrder, string, error)
	getFn        func(ctx context.Context, orderNumber string) (*models.ConfirmedOrder, error)
}

func (r *testOrderRepo) PersistConfirmedOrder(context.Context, *engine.OrderState) (*models.ConfirmedOrder, error) {
	return nil, nil
}

func (r *testOrderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.ConfirmedOrder, error) {
	if r.getFn != nil {
		return r.getFn(ctx, orderNumber)
	}
	return nil, nil
}

func (r *testOrderRepo) ListBySession(context.Context, string) ([]models.ConfirmedOrder, error) {
	return nil, nil
}

func (r *testOrderRepo) ListRecent(ctx context.Context, params pagination.Params) ([]models.ConfirmedOrder, string, error) {
	if r.listRecentFn != nil {
		return r.listRecentFn(ctx, params)
	}
	return nil, "", nil
}

func TestListOrdersSuccess(t *testing.T) {
	repo := &testOrderRepo{
		listRecentFn: func(_ context.Context, params pagination.Params) ([]models.ConfirmedOrder, string, error) {
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return []models.ConfirmedOrder{
				{ID: uuid.New(), OrderNumber: "ORD-AB12CD-07", Total: 10.85},
			}, "next-token", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10", nil)
	resp := httptest.NewRecorder()
	ListOrders(repo, testLog())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Orders     []models.ConfirmedOrder `json:"orders"`
			NextCursor string                  `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 {
		t.Fatalf("unexpected orders %v", envelope.Data.Orders)
	}
	if envelope.Data.NextCursor != "next-token" {
		t.Fatalf("unexpected cursor %q", envelope.Data.NextCursor)
	}
}

func TestListOrdersRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=zero", nil)
	resp := httptest.NewRecorder()
	ListOrders(&testOrderRepo{}, testLog())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-MISSING-00", nil), "orderNumber", "ORD-MISSING-00")
	resp := httptest.NewRecorder()
	GetOrder(&testOrderRepo{}, testLog())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestGetOrderSuccess(t *testing.T) {
	repo := &testOrderRepo{
		getFn: func(_ context.Context, orderNumber string) (*models.ConfirmedOrder, error) {
			if orderNumber != "ORD-AB12CD-07" {
				t.Fatalf("unexpected order number %q", orderNumber)
			}
			return &models.ConfirmedOrder{ID: uuid.New(), OrderNumber: orderNumber}, nil
		},
	}

	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-AB12CD-07", nil), "orderNumber", "ORD-AB12CD-07")
	resp := httptest.NewRecorder()
	GetOrder(repo, testLog())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestGetOrderDependencyError(t *testing.T) {
	repo := &testOrderRepo{
		getFn: func(context.Context, string) (*models.ConfirmedOrder, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "db down")
		},
	}

	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-AB12CD-07", nil), "orderNumber", "ORD-AB12CD-07")
	resp := httptest.NewRecorder()
	GetOrder(repo, testLog())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
