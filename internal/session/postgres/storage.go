package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/academy-portal/internal/session"
)

// Record is one keyed JSON document in the portal_records table.
type Record struct {
	RecordKey string    `gorm:"primaryKey;column:record_key"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Record) TableName() string {
	return "portal_records"
}

type Storage struct {
	db *gorm.DB
}

var _ session.Storage = (*Storage)(nil)

func NewStorage(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var record Record
	err := s.db.WithContext(ctx).First(&record, "record_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return record.Value, nil
}

func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	record := Record{
		RecordKey: key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			UpdateAll: true,
		}).
		Create(&record).Error
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&Record{}, "record_key = ?", key).Error
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
