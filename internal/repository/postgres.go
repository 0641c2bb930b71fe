package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foodscan/foodscan-api/internal/config"
	"github.com/foodscan/foodscan-api/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ScanRecord is the persisted form of a scan result. The aggregate is stored
// as a JSON payload; the indexed columns exist for lookups only.
type ScanRecord struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	Barcode     string `gorm:"index"`
	ProductName string
	Payload     []byte `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

// PostgresScanStore is the gorm-backed scan result store.
type PostgresScanStore struct {
	db *gorm.DB
}

// NewPostgresScanStore opens a connection and migrates the schema.
func NewPostgresScanStore(cfg config.DBConfig) (*PostgresScanStore, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&ScanRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &PostgresScanStore{db: db}, nil
}

// Save persists a scan result. Results are write-once; a conflicting id is an
// error, not an update.
func (s *PostgresScanStore) Save(ctx context.Context, result *domain.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	record := &ScanRecord{
		ID:          result.ID,
		UserID:      result.UserID,
		Barcode:     result.Product.Barcode,
		ProductName: result.Product.Name,
		Payload:     payload,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save scan result: %w", err)
	}
	return nil
}

// GetByID returns the stored scan result, or (nil, nil) when none exists.
func (s *PostgresScanStore) GetByID(ctx context.Context, id string) (*domain.ScanResult, error) {
	var record ScanRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan result: %w", err)
	}

	var result domain.ScanResult
	if err := json.Unmarshal(record.Payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return &result, nil
}
