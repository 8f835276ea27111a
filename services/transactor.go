package services

import (
	"context"

	"campaign-messaging-api/config"

	"gorm.io/gorm"
)

// Transactor runs fn inside one database transaction. Any error returned by fn
// (or a panic) rolls the whole transaction back.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type GormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) *GormTransactor {
	if db == nil {
		db = config.DB
	}
	return &GormTransactor{db: db}
}

func (t *GormTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
