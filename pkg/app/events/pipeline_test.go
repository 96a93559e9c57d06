package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent/mocks"
)

func newPipeline(repo *mocks.Repository, bufferSize int) *events.Pipeline {
	return events.NewPipeline(repo, nil, events.Config{
		BufferSize:    bufferSize,
		FlushInterval: time.Hour,
		RetentionDays: 30,
	}, logrus.New())
}

func event(eventType string) *securityevent.SecurityEvent {
	return &securityevent.SecurityEvent{
		Type:   eventType,
		Source: "test",
		IP:     "203.0.113.10",
	}
}

func TestPipeline_Record(t *testing.T) {
	t.Run("assigns id, timestamp and severity", func(t *testing.T) {
		repo := new(mocks.Repository)
		pipeline := newPipeline(repo, 10)

		evt := event(securityevent.TypeThreatChecked)
		pipeline.Record(evt)

		assert.NotEmpty(t, evt.ID)
		assert.False(t, evt.Timestamp.IsZero())
		assert.Equal(t, securityevent.SeverityInfo, evt.Severity)
		assert.Equal(t, 1, pipeline.BufferedCount())
		repo.AssertNotCalled(t, "SaveBatch")
	})

	t.Run("flushes when the buffer fills", func(t *testing.T) {
		repo := new(mocks.Repository)
		repo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(batch []*securityevent.SecurityEvent) bool {
			return len(batch) == 3
		})).Return(nil).Once()

		pipeline := newPipeline(repo, 3)
		for i := 0; i < 3; i++ {
			pipeline.Record(event(securityevent.TypeDecision))
		}

		assert.Zero(t, pipeline.BufferedCount())
		repo.AssertExpectations(t)
	})
}

func TestPipeline_Flush(t *testing.T) {
	t.Run("empty buffer is a no-op", func(t *testing.T) {
		repo := new(mocks.Repository)
		pipeline := newPipeline(repo, 10)

		pipeline.Flush(context.Background())
		repo.AssertNotCalled(t, "SaveBatch")
	})

	t.Run("failed flush requeues the batch in order", func(t *testing.T) {
		repo := new(mocks.Repository)
		repo.On("SaveBatch", mock.Anything, mock.Anything).Return(assert.AnError)

		pipeline := newPipeline(repo, 10)
		first := event(securityevent.TypeDecision)
		second := event(securityevent.TypeThreatChecked)
		pipeline.Record(first)
		pipeline.Record(second)

		pipeline.Flush(context.Background())

		// Nothing was lost; a later flush retries the same events first.
		require.Equal(t, 2, pipeline.BufferedCount())

		repo.ExpectedCalls = nil
		var retried []*securityevent.SecurityEvent
		repo.On("SaveBatch", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				retried = args.Get(1).([]*securityevent.SecurityEvent)
			}).Return(nil)

		pipeline.Flush(context.Background())
		require.Len(t, retried, 2)
		assert.Equal(t, first.ID, retried[0].ID)
		assert.Equal(t, second.ID, retried[1].ID)
		assert.Zero(t, pipeline.BufferedCount())
	})
}

func TestPipeline_StartStop(t *testing.T) {
	repo := new(mocks.Repository)
	repo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

	pipeline := events.NewPipeline(repo, nil, events.Config{
		BufferSize:    10,
		FlushInterval: 10 * time.Millisecond,
		RetentionDays: 30,
	}, logrus.New())

	pipeline.Start(context.Background())
	pipeline.Record(event(securityevent.TypeDecision))

	assert.Eventually(t, func() bool {
		return pipeline.BufferedCount() == 0
	}, time.Second, 10*time.Millisecond)

	pipeline.Stop()
}
