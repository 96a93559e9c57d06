package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/fingerprint"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) Save(ctx context.Context, fp *fingerprint.Fingerprint) error {
	args := m.Called(ctx, fp)
	return args.Error(0)
}

func (m *Repository) CountSessionsByDeviceID(ctx context.Context, deviceID string) (int64, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Repository) FindRecentByDeviceID(ctx context.Context, deviceID string, limit int) ([]*fingerprint.Fingerprint, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fingerprint.Fingerprint), args.Error(1)
}
