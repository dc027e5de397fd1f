package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/pkg/db/models"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists confirmed orders.
type Repository interface {
	PersistConfirmedOrder(ctx context.Context, state *engine.OrderState) (*models.ConfirmedOrder, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.ConfirmedOrder, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.ConfirmedOrder, error)
	ListRecent(ctx context.Context, params pagination.Params) ([]models.ConfirmedOrder, string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// PersistConfirmedOrder writes the durable row for a confirmed order.
// The order number is the idempotency key: a retried confirmation
// returns the existing row untouched.
func (r *repository) PersistConfirmedOrder(ctx context.Context, state *engine.OrderState) (*models.ConfirmedOrder, error) {
	if state == nil || !state.Checkout.Confirmed || state.Checkout.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed orders with a number persist")
	}

	existing, err := r.GetByOrderNumber(ctx, state.Checkout.OrderNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	snapshot, err := json.Marshal(state)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order snapshot")
	}

	row := &models.ConfirmedOrder{
		ID:          uuid.New(),
		SessionID:   state.SessionID,
		OrderNumber: state.Checkout.OrderNumber,
		OrderType:   string(state.Delivery.OrderType),
		Customer:    state.CustomerName,
		Phone:       state.CustomerPhone,
		Email:       state.CustomerEmail,
		Subtotal:    state.Checkout.Subtotal,
		CityTax:     state.Checkout.CityTax,
		StateTax:    state.Checkout.StateTax,
		DeliveryFee: state.Checkout.DeliveryFee,
		Tip:         state.Checkout.Tip,
		Total:       state.Checkout.Total,
		State:       snapshot,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		// A concurrent retry can land between the lookup and the
		// insert; the unique index turns that into a read.
		if dup, dupErr := r.GetByOrderNumber(ctx, state.Checkout.OrderNumber); dupErr == nil && dup != nil {
			return dup, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist confirmed order")
	}
	return row, nil
}

func (r *repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.ConfirmedOrder, error) {
	var row models.ConfirmedOrder
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load confirmed order")
	}
	return &row, nil
}

// ListRecent pages through confirmed orders newest-first with a keyset
// cursor. The returned cursor is empty on the last page.
func (r *repository) ListRecent(ctx context.Context, params pagination.Params) ([]models.ConfirmedOrder, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.LimitWithBuffer(params.Limit)
	q := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ConfirmedOrder
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmed orders")
	}

	next := ""
	if len(rows) == limit {
		rows = rows[:limit-1]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]models.ConfirmedOrder, error) {
	var rows []models.ConfirmedOrder
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmed orders")
	}
	return rows, nil
}
