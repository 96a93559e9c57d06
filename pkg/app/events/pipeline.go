package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/prometheus"
)

// Recorder accepts security events for asynchronous persistence. Recording
// never blocks the caller on storage.
type Recorder interface {
	Record(event *securityevent.SecurityEvent)
}

// Sink receives each successfully persisted batch. Optional.
type Sink interface {
	Publish(events []*securityevent.SecurityEvent) error
}

type Config struct {
	BufferSize    int
	FlushInterval time.Duration
	RetentionDays int
}

// Pipeline buffers events in memory and flushes them to the repository in
// batches, either on the flush interval or as soon as the buffer fills. A
// failed flush puts the drained batch back at the front of the buffer so
// ordering survives transient storage outages.
type Pipeline struct {
	repo   securityevent.Repository
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	mu     sync.Mutex
	buffer []*securityevent.SecurityEvent

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPipeline(
	repo securityevent.Repository,
	sink Sink,
	cfg Config,
	logger *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		repo:   repo,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		buffer: make([]*securityevent.SecurityEvent, 0, cfg.BufferSize),
	}
}

func (p *Pipeline) Record(event *securityevent.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = securityevent.SeverityInfo
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": event.ID,
		"type":     event.Type,
		"severity": event.Severity,
		"ip":       event.IP,
		"user_id":  event.UserID,
	}).Info("security event")

	p.mu.Lock()
	p.buffer = append(p.buffer, event)
	full := len(p.buffer) >= p.cfg.BufferSize
	prometheus.EventBufferSize.Set(float64(len(p.buffer)))
	p.mu.Unlock()

	if full {
		p.Flush(context.Background())
	}
}

// Flush drains the buffer and persists it as one batch.
func (p *Pipeline) Flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.buffer) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.buffer
	p.buffer = make([]*securityevent.SecurityEvent, 0, p.cfg.BufferSize)
	prometheus.EventBufferSize.Set(0)
	p.mu.Unlock()

	if err := p.repo.SaveBatch(ctx, batch); err != nil {
		p.logger.WithError(err).WithField("batch_size", len(batch)).
			Error("failed to flush security events, requeueing")
		prometheus.EventsFlushed.WithLabelValues("failure").Add(float64(len(batch)))

		p.mu.Lock()
		p.buffer = append(batch, p.buffer...)
		prometheus.EventBufferSize.Set(float64(len(p.buffer)))
		p.mu.Unlock()
		return
	}
	prometheus.EventsFlushed.WithLabelValues("success").Add(float64(len(batch)))

	if p.sink != nil {
		if err := p.sink.Publish(batch); err != nil {
			p.logger.WithError(err).Warn("failed to publish events to sink")
		}
	}
}

// Start launches the periodic flush and the daily retention sweep. Stop
// cancels both and performs a final flush.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		flush := time.NewTicker(p.cfg.FlushInterval)
		retention := time.NewTicker(24 * time.Hour)
		defer flush.Stop()
		defer retention.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-flush.C:
				p.Flush(ctx)
			case <-retention.C:
				p.purge(ctx)
			}
		}
	}()
}

func (p *Pipeline) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Flush(ctx)
}

func (p *Pipeline) Query(ctx context.Context, filter securityevent.Filter) ([]*securityevent.SecurityEvent, int64, error) {
	return p.repo.Query(ctx, filter)
}

func (p *Pipeline) Analytics(ctx context.Context, since time.Time) (*securityevent.Analytics, error) {
	return p.repo.Analytics(ctx, since)
}

func (p *Pipeline) BufferedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

func (p *Pipeline) purge(ctx context.Context) {
	if p.cfg.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -p.cfg.RetentionDays)
	deleted, err := p.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.WithError(err).Error("security event retention sweep failed")
		return
	}
	if deleted > 0 {
		p.logger.WithField("deleted", deleted).Info("purged expired security events")
	}
}
