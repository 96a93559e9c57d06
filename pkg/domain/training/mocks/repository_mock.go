package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/training"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) Save(ctx context.Context, sample *training.Sample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}

func (m *Repository) Recent(ctx context.Context, limit int) ([]*training.Sample, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*training.Sample), args.Error(1)
}
