package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/training"
)

type trainingSampleRepository struct {
	db *gorm.DB
}

func NewTrainingSampleRepository(db *gorm.DB) training.Repository {
	return &trainingSampleRepository{db: db}
}

func (r *trainingSampleRepository) Save(ctx context.Context, sample *training.Sample) error {
	return r.db.WithContext(ctx).Create(sample).Error
}

func (r *trainingSampleRepository) Recent(ctx context.Context, limit int) ([]*training.Sample, error) {
	var samples []*training.Sample
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}
