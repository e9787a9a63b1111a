package repositories

import (
	"context"
	"time"

	"latanda-core/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// securityEventRepository implements SecurityEventRepository interface
type securityEventRepository struct {
	db *gorm.DB
}

// NewSecurityEventRepository creates a new security event repository
func NewSecurityEventRepository(db *gorm.DB) SecurityEventRepository {
	return &securityEventRepository{db: db}
}

// Create inserts one audit record
func (r *securityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListRecent lists events at or above a score since the given time
func (r *securityEventRepository) ListRecent(ctx context.Context, since time.Time, minScore, limit int) ([]*models.SecurityEvent, error) {
	var events []*models.SecurityEvent
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND risk_score >= ?", since, minScore).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// CountByIdentity counts events for one identity since the given time
func (r *securityEventRepository) CountByIdentity(ctx context.Context, identity string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SecurityEvent{}).
		Where("identity = ? AND created_at >= ?", identity, since).
		Count(&count).Error
	return count, err
}
