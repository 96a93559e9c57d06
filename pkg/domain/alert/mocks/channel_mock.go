package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
)

type Channel struct {
	mock.Mock
}

func (m *Channel) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Channel) Send(ctx context.Context, a *alert.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
