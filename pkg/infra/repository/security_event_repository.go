package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
)

type securityEventRepository struct {
	db *gorm.DB
}

func NewSecurityEventRepository(db *gorm.DB) securityevent.Repository {
	return &securityEventRepository{db: db}
}

func (r *securityEventRepository) SaveBatch(ctx context.Context, events []*securityevent.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}

func (r *securityEventRepository) Query(
	ctx context.Context,
	filter securityevent.Filter,
) ([]*securityevent.SecurityEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&securityevent.SecurityEvent{})

	if !filter.From.IsZero() {
		query = query.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("timestamp <= ?", filter.To)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.IP != "" {
		query = query.Where("ip = ?", filter.IP)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []*securityevent.SecurityEvent
	err := query.Order("timestamp DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&events).Error
	return events, total, err
}

func (r *securityEventRepository) Analytics(
	ctx context.Context,
	since time.Time,
) (*securityevent.Analytics, error) {
	analytics := &securityevent.Analytics{
		ByType:     make(map[string]int64),
		BySeverity: make(map[string]int64),
	}

	base := r.db.WithContext(ctx).
		Model(&securityevent.SecurityEvent{}).
		Where("timestamp >= ?", since)

	if err := base.Session(&gorm.Session{}).Count(&analytics.Total).Error; err != nil {
		return nil, err
	}

	type kv struct {
		Key   string
		Count int64
	}

	var byType []kv
	if err := base.Session(&gorm.Session{}).
		Select("type AS key, COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		analytics.ByType[row.Key] = row.Count
	}

	var bySeverity []kv
	if err := base.Session(&gorm.Session{}).
		Select("severity AS key, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error; err != nil {
		return nil, err
	}
	for _, row := range bySeverity {
		analytics.BySeverity[row.Key] = row.Count
	}

	if err := base.Session(&gorm.Session{}).
		Select("EXTRACT(HOUR FROM timestamp)::int AS hour, COUNT(*) AS count").
		Group("hour").
		Order("hour").
		Scan(&analytics.ByHour).Error; err != nil {
		return nil, err
	}

	if err := base.Session(&gorm.Session{}).
		Select("ip, COUNT(*) AS count").
		Where("ip <> ''").
		Group("ip").
		Order("count DESC").
		Limit(10).
		Scan(&analytics.TopIPs).Error; err != nil {
		return nil, err
	}

	return analytics, nil
}

func (r *securityEventRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&securityevent.SecurityEvent{})
	return result.RowsAffected, result.Error
}

func (r *securityEventRepository) CountByTypeSince(
	ctx context.Context,
	eventType string,
	since time.Time,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&securityevent.SecurityEvent{}).
		Where("type = ? AND timestamp >= ?", eventType, since).
		Count(&count).Error
	return count, err
}
