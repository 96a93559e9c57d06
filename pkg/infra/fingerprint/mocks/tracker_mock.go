package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/fingerprint"
)

type Tracker struct {
	mock.Mock
}

func (m *Tracker) Store(ctx context.Context, fp *fingerprint.Fingerprint, ttl time.Duration) error {
	args := m.Called(ctx, fp, ttl)
	return args.Error(0)
}

func (m *Tracker) SeenCount(ctx context.Context, hash string) (int64, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Tracker) FindSimilar(ctx context.Context, fp *fingerprint.Fingerprint, maxDistance int) ([]*fingerprint.Fingerprint, error) {
	args := m.Called(ctx, fp, maxDistance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fingerprint.Fingerprint), args.Error(1)
}

func (m *Tracker) IsBlocked(ctx context.Context, fp *fingerprint.Fingerprint) (bool, error) {
	args := m.Called(ctx, fp)
	return args.Bool(0), args.Error(1)
}

func (m *Tracker) Block(ctx context.Context, fp *fingerprint.Fingerprint, duration time.Duration) error {
	args := m.Called(ctx, fp, duration)
	return args.Error(0)
}
