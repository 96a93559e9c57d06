package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/fingerprint"
)

type fingerprintRepository struct {
	db *gorm.DB
}

func NewFingerprintRepository(db *gorm.DB) fingerprint.Repository {
	return &fingerprintRepository{db: db}
}

func (r *fingerprintRepository) Save(ctx context.Context, fp *fingerprint.Fingerprint) error {
	return r.db.WithContext(ctx).Create(fp).Error
}

func (r *fingerprintRepository) CountSessionsByDeviceID(ctx context.Context, deviceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&fingerprint.Fingerprint{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	return count, err
}

func (r *fingerprintRepository) FindRecentByDeviceID(
	ctx context.Context,
	deviceID string,
	limit int,
) ([]*fingerprint.Fingerprint, error) {
	var entities []*fingerprint.Fingerprint
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entities).Error
	return entities, err
}
