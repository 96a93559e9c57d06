package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) SaveBatch(ctx context.Context, events []*securityevent.SecurityEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *Repository) Query(ctx context.Context, filter securityevent.Filter) ([]*securityevent.SecurityEvent, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*securityevent.SecurityEvent), args.Get(1).(int64), args.Error(2)
}

func (m *Repository) Analytics(ctx context.Context, since time.Time) (*securityevent.Analytics, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*securityevent.Analytics), args.Error(1)
}

func (m *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Repository) CountByTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error) {
	args := m.Called(ctx, eventType, since)
	return args.Get(0).(int64), args.Error(1)
}
