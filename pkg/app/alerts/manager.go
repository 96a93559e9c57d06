package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/health"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/prometheus"
)

const violationWindow = 5 * time.Minute

// Thresholds drive the periodic system sweep.
type Thresholds struct {
	MemoryMB     int
	StoragePct   float64
	RateLimitHit int
	AbuseHit     int
}

// Manager raises, throttles and fans out alerts. A (type, severity, source)
// tuple fires at most once per cooldown window; everything raised lands in a
// bounded in-memory history and the event pipeline.
type Manager struct {
	channels    []alert.Channel
	prober      *health.Prober
	eventsRepo  securityevent.Repository
	recorder    events.Recorder
	cooldown    time.Duration
	thresholds  Thresholds
	historySize int
	logger      *logrus.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	history  []*alert.Alert

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(
	channels []alert.Channel,
	prober *health.Prober,
	eventsRepo securityevent.Repository,
	recorder events.Recorder,
	cooldown time.Duration,
	thresholds Thresholds,
	historySize int,
	logger *logrus.Logger,
) *Manager {
	return &Manager{
		channels:    channels,
		prober:      prober,
		eventsRepo:  eventsRepo,
		recorder:    recorder,
		cooldown:    cooldown,
		thresholds:  thresholds,
		historySize: historySize,
		logger:      logger,
		lastSent:    make(map[string]time.Time),
	}
}

// Trigger raises an alert unless the same (type, severity, source) tuple
// fired inside the cooldown window. Delivery is concurrent across channels;
// one failing channel never blocks the rest.
func (m *Manager) Trigger(ctx context.Context, alertType, severity, source, message string, details domain.JSONMap) {
	key := fmt.Sprintf("%s|%s|%s", alertType, severity, source)

	m.mu.Lock()
	if last, ok := m.lastSent[key]; ok && time.Since(last) < m.cooldown {
		m.mu.Unlock()
		m.logger.WithFields(logrus.Fields{
			"alert_type": alertType,
			"severity":   severity,
			"source":     source,
		}).Info("alert suppressed by cooldown")
		prometheus.AlertsTotal.WithLabelValues(alertType, "suppressed").Inc()
		return
	}
	m.lastSent[key] = time.Now()
	m.mu.Unlock()

	a := &alert.Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Severity:  severity,
		Source:    source,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
	m.remember(a)

	var wg sync.WaitGroup
	for _, channel := range m.channels {
		wg.Add(1)
		go func(channel alert.Channel) {
			defer wg.Done()
			if err := channel.Send(ctx, a); err != nil {
				m.logger.WithError(err).WithFields(logrus.Fields{
					"channel":  channel.Name(),
					"alert_id": a.ID,
				}).Error("alert delivery failed")
				prometheus.AlertsTotal.WithLabelValues(alertType, "failure").Inc()
				return
			}
			prometheus.AlertsTotal.WithLabelValues(alertType, "success").Inc()
		}(channel)
	}
	wg.Wait()

	m.recorder.Record(&securityevent.SecurityEvent{
		Type:     securityevent.TypeSystemAlert,
		Severity: eventSeverity(severity),
		Source:   source,
		Details: domain.JSONMap{
			"alert_id":   a.ID,
			"alert_type": alertType,
			"message":    message,
		},
	})
}

// CheckSecurityMetrics runs one monitoring sweep: system resources plus
// abuse signals derived from recent security events.
func (m *Manager) CheckSecurityMetrics(ctx context.Context) error {
	status := m.prober.Probe()

	if m.thresholds.MemoryMB > 0 && status.MemoryUsedMB > m.thresholds.MemoryMB {
		m.Trigger(ctx, alert.TypeHighMemory, alert.SeverityWarning, "monitor",
			fmt.Sprintf("memory usage %dMB exceeds threshold %dMB", status.MemoryUsedMB, m.thresholds.MemoryMB),
			domain.JSONMap{"memory_used_mb": status.MemoryUsedMB})
	}
	if m.thresholds.StoragePct > 0 && status.StorageUsedPct > m.thresholds.StoragePct {
		m.Trigger(ctx, alert.TypeLowStorage, alert.SeverityWarning, "monitor",
			fmt.Sprintf("storage %.1f%% used exceeds threshold %.1f%%", status.StorageUsedPct, m.thresholds.StoragePct),
			domain.JSONMap{"storage_used_pct": status.StorageUsedPct})
	}

	since := time.Now().Add(-violationWindow)

	rateLimitHits, err := m.eventsRepo.CountByTypeSince(ctx, securityevent.TypeRateLimitViolation, since)
	if err != nil {
		return fmt.Errorf("rate limit violation count failed: %w", err)
	}
	if m.thresholds.RateLimitHit > 0 && rateLimitHits > int64(m.thresholds.RateLimitHit) {
		m.Trigger(ctx, alert.TypeRateLimitSpike, alert.SeverityWarning, "monitor",
			fmt.Sprintf("%d rate limit violations in the last %s", rateLimitHits, violationWindow),
			domain.JSONMap{"violations": rateLimitHits})
	}

	threats, err := m.eventsRepo.CountByTypeSince(ctx, securityevent.TypeThreatDetected, since)
	if err != nil {
		return fmt.Errorf("threat event count failed: %w", err)
	}
	if m.thresholds.AbuseHit > 0 && threats > int64(m.thresholds.AbuseHit) {
		m.Trigger(ctx, alert.TypeAbuseSpike, alert.SeverityCritical, "monitor",
			fmt.Sprintf("%d threat detections in the last %s", threats, violationWindow),
			domain.JSONMap{"detections": threats})
	}

	return nil
}

// Start runs the monitoring sweep on the given interval. A failing sweep
// raises its own critical alert so monitoring outages are visible.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.CheckSecurityMetrics(ctx); err != nil {
					m.logger.WithError(err).Error("monitoring sweep failed")
					m.Trigger(ctx, alert.TypeMonitoringFailure, alert.SeverityCritical, "monitor",
						"monitoring sweep failed: "+err.Error(), nil)
				}
			}
		}
	}()
}

func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// History returns the retained alerts, newest first.
func (m *Manager) History() []*alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*alert.Alert, len(m.history))
	for i, a := range m.history {
		out[len(m.history)-1-i] = a
	}
	return out
}

func (m *Manager) remember(a *alert.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) >= m.historySize {
		m.history = m.history[1:]
	}
	m.history = append(m.history, a)
}

func eventSeverity(alertSeverity string) string {
	switch alertSeverity {
	case alert.SeverityCritical:
		return securityevent.SeverityCritical
	case alert.SeverityWarning:
		return securityevent.SeverityMedium
	default:
		return securityevent.SeverityInfo
	}
}
