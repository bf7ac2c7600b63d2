package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteAdapter persists captured credentials using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// CredentialModel is the GORM model for captured credentials.
type CredentialModel struct {
	ID         string `gorm:"primaryKey"`
	SessionID  string `gorm:"index"`
	SSID       string `gorm:"index"`
	APName     string
	ClientAddr string
	Username   string
	Password   string
	Fields     string    // JSON encoded map[string]string
	CapturedAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newAdapter(db)
}

func newAdapter(db *gorm.DB) (*SQLiteAdapter, error) {
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	if err := db.AutoMigrate(&CredentialModel{}); err != nil {
		return nil, err
	}
	return &SQLiteAdapter{db: db}, nil
}

// WriteCredential appends a credential. Records are never updated.
func (a *SQLiteAdapter) WriteCredential(ctx context.Context, c domain.Credential) error {
	model, err := toModel(c)
	if err != nil {
		return err
	}
	return a.db.WithContext(ctx).Create(&model).Error
}

// ListCredentials returns the newest credentials first, at most limit
// (all when limit <= 0).
func (a *SQLiteAdapter) ListCredentials(ctx context.Context, limit int) ([]domain.Credential, error) {
	query := a.db.WithContext(ctx).Order("captured_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []CredentialModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	creds := make([]domain.Credential, len(models))
	for i, m := range models {
		creds[i] = toDomain(m)
	}
	return creds, nil
}

// CountCredentials returns the number of stored credentials.
func (a *SQLiteAdapter) CountCredentials(ctx context.Context) (int64, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&CredentialModel{}).Count(&n).Error
	return n, err
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var (
	_ ports.CredentialWriter = (*SQLiteAdapter)(nil)
	_ ports.CredentialLister = (*SQLiteAdapter)(nil)
)
