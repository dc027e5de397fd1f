package menu

import (
	"context"

	"github.com/bagelworks/orderbot-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository loads menu reference data.
type Repository interface {
	ListEntries(ctx context.Context) ([]models.MenuEntry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListEntries(ctx context.Context) ([]models.MenuEntry, error) {
	var rows []models.MenuEntry
	if err := r.db.WithContext(ctx).Order("kind, name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
