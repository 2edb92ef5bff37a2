package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// tenantQuery starts a query confined to one tenant's rows
func tenantQuery(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	return db.WithContext(ctx).Where("tenant_id = ?", tenantID)
}

// first loads one row, mapping a miss to shared.ErrNotFound
func first[T any](q *gorm.DB) (*T, error) {
	var row T
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// all loads every matching row; no rows is an empty, non-nil slice
func all[T any](q *gorm.DB) ([]T, error) {
	rows := []T{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func exists[T any](q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Model(new(T)).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// saveVersioned inserts a new aggregate row, or updates it only while the
// row still holds the version it was read at. Every update moves the
// version forward. Associations are left to the caller.
func saveVersioned(db *gorm.DB, model any, root *shared.TenantAggregateRoot) error {
	stored := root.StoredVersion()
	if stored == 0 {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		root.MarkStored()
		return nil
	}

	if root.Version <= stored {
		root.Version = stored + 1
	}
	res := db.Model(model).
		Select("*").
		Omit(clause.Associations).
		Where("version = ?", stored).
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	root.MarkStored()
	return nil
}
