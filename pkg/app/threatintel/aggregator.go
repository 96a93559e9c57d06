package threatintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pranaysuyash/metaextract-sub011/pkg/app/events"
	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/prometheus"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

// degradedScore is the safe default when every provider fails: suspicious
// enough to surface, not enough to block.
const degradedScore = 40

var ErrInvalidIP = fmt.Errorf("invalid ip address")

// Result is the aggregated threat verdict for one IP.
type Result struct {
	IP        string          `json:"ip"`
	Score     int             `json:"score"`
	RiskLevel types.RiskLevel `json:"risk_level"`
	IsTor     bool            `json:"is_tor"`
	IsVPN     bool            `json:"is_vpn"`
	IsProxy   bool            `json:"is_proxy"`
	Sources   []string        `json:"sources"`
	Degraded  bool            `json:"degraded"`
	CheckedAt time.Time       `json:"checked_at"`
	Cached    bool            `json:"-"`
}

type Bonuses struct {
	TorExit  int
	VPNProxy int
}

// Alerter raises an operator alert for a high-risk verdict. Satisfied by the
// alert manager; nil disables alerting.
type Alerter interface {
	Trigger(ctx context.Context, alertType, severity, source, message string, details domain.JSONMap)
}

// Aggregator fans one IP check out to all configured providers, combines the
// reports into a weighted composite and caches the verdict. Concurrent
// checks for the same IP collapse into a single provider round.
type Aggregator struct {
	providers []WeightedProvider
	blocklist *TorBlocklist
	redis     *cache.Cache
	bonuses   Bonuses
	metrics   *Metrics
	recorder  events.Recorder
	alerter   Alerter
	logger    *logrus.Logger
	group     singleflight.Group
}

func NewAggregator(
	weighted []WeightedProvider,
	blocklist *TorBlocklist,
	redis *cache.Cache,
	bonuses Bonuses,
	metrics *Metrics,
	recorder events.Recorder,
	alerter Alerter,
	logger *logrus.Logger,
) *Aggregator {
	return &Aggregator{
		providers: weighted,
		blocklist: blocklist,
		redis:     redis,
		bonuses:   bonuses,
		metrics:   metrics,
		recorder:  recorder,
		alerter:   alerter,
		logger:    logger,
	}
}

// Check resolves the threat verdict for an IP: cache first, then one shared
// provider fan-out. A syntactically invalid address short-circuits to a
// zero-risk unknown verdict without touching cache or providers. Check never
// fails on provider outages; total failure yields a degraded medium-risk
// verdict that is not cached.
func (a *Aggregator) Check(ctx context.Context, ip string) (*Result, error) {
	if net.ParseIP(ip) == nil {
		return &Result{
			IP:        ip,
			RiskLevel: types.RiskLevelUnknown,
			CheckedAt: time.Now(),
		}, nil
	}
	start := time.Now()

	if cached := a.fromCache(ctx, ip); cached != nil {
		prometheus.ThreatCacheHits.WithLabelValues("hit").Inc()
		a.metrics.Observe(time.Since(start), true, false)
		return cached, nil
	}
	prometheus.ThreatCacheHits.WithLabelValues("miss").Inc()

	value, err, _ := a.group.Do(ip, func() (interface{}, error) {
		return a.aggregate(ctx, ip), nil
	})
	if err != nil {
		return nil, err
	}
	result, ok := value.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected aggregation result type %T", value)
	}

	a.metrics.Observe(time.Since(start), false, result.Degraded)
	return result, nil
}

func (a *Aggregator) aggregate(ctx context.Context, ip string) *Result {
	reports, minTTL := a.fanOut(ctx, ip)

	result := &Result{
		IP:        ip,
		CheckedAt: time.Now(),
	}

	if len(reports) == 0 {
		result.Score = degradedScore
		result.Degraded = true
		result.RiskLevel = types.LevelForScore(result.Score)
		a.logger.WithField("ip", ip).Warn("all threat intel providers failed")
		return result
	}

	var weightedSum, weightTotal float64
	for _, report := range reports {
		weight := a.weightFor(report.Provider)
		weightedSum += float64(report.Score) * weight
		weightTotal += weight
		result.Sources = append(result.Sources, report.Provider)
		result.IsTor = result.IsTor || report.IsTor
		result.IsVPN = result.IsVPN || report.IsVPN
		result.IsProxy = result.IsProxy || report.IsProxy
	}
	if weightTotal == 0 {
		weightTotal = float64(len(reports))
		weightedSum = 0
		for _, report := range reports {
			weightedSum += float64(report.Score)
		}
	}
	score := weightedSum / weightTotal

	if !result.IsTor && a.blocklist != nil {
		onList, err := a.blocklist.Contains(ctx, ip)
		if err != nil {
			a.logger.WithError(err).Warn("tor blocklist lookup failed")
		}
		result.IsTor = onList
	}
	if result.IsTor {
		score += float64(a.bonuses.TorExit)
	} else if result.IsVPN || result.IsProxy {
		score += float64(a.bonuses.VPNProxy)
	}
	if score > 100 {
		score = 100
	}
	result.Score = int(score)
	result.RiskLevel = types.LevelForScore(result.Score)

	a.store(ctx, result, minTTL)
	a.recordEvent(ctx, result)
	return result
}

// fanOut queries every provider concurrently and collects whatever arrives
// before each provider's own deadline. Failures are logged and dropped.
func (a *Aggregator) fanOut(ctx context.Context, ip string) ([]*providers.Report, time.Duration) {
	var (
		mu      sync.Mutex
		reports []*providers.Report
		minTTL  time.Duration
		wg      sync.WaitGroup
	)

	for _, wp := range a.providers {
		wg.Add(1)
		go func(wp WeightedProvider) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, wp.Timeout)
			defer cancel()

			report, err := wp.Provider.Check(checkCtx, ip)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"provider": wp.Provider.Name(),
					"ip":       ip,
				}).Warn("threat intel provider failed")
				return
			}

			mu.Lock()
			reports = append(reports, report)
			if minTTL == 0 || report.TTL < minTTL {
				minTTL = report.TTL
			}
			mu.Unlock()
		}(wp)
	}
	wg.Wait()

	return reports, minTTL
}

// ReportMaliciousIP forwards an abuse report to every provider that accepts
// submissions and drops the cached verdict so the next check re-resolves.
func (a *Aggregator) ReportMaliciousIP(ctx context.Context, ip string, categories []string, comment string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	submitted := 0
	for _, wp := range a.providers {
		reporter, ok := wp.Provider.(providers.Reporter)
		if !ok {
			continue
		}
		if err := reporter.ReportMalicious(ctx, ip, categories, comment); err != nil {
			a.logger.WithError(err).WithField("provider", wp.Provider.Name()).
				Warn("malicious ip report failed")
			continue
		}
		submitted++
	}

	if err := a.redis.Delete(ctx, fmt.Sprintf(cache.ThreatIntelKeyPattern, ip)); err != nil {
		a.logger.WithError(err).Warn("threat cache invalidation failed")
	}

	a.recorder.Record(&securityevent.SecurityEvent{
		Type:     securityevent.TypeMaliciousIPReport,
		Severity: securityevent.SeverityMedium,
		Source:   "threatintel",
		IP:       ip,
		Details: domain.JSONMap{
			"categories": categories,
			"submitted":  submitted,
		},
	})
	if submitted == 0 {
		a.logger.WithField("ip", ip).Warn("no provider accepted the abuse report")
	}
	return nil
}

func (a *Aggregator) fromCache(ctx context.Context, ip string) *Result {
	raw, err := a.redis.Get(ctx, fmt.Sprintf(cache.ThreatIntelKeyPattern, ip))
	if err != nil {
		return nil
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	result.Cached = true
	return &result
}

func (a *Aggregator) store(ctx context.Context, result *Result, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := fmt.Sprintf(cache.ThreatIntelKeyPattern, result.IP)
	if err := a.redis.Set(ctx, key, string(data), ttl); err != nil {
		a.logger.WithError(err).Warn("threat cache store failed")
	}
}

func (a *Aggregator) recordEvent(ctx context.Context, result *Result) {
	eventType := securityevent.TypeThreatChecked
	severity := securityevent.SeverityInfo
	if result.RiskLevel == types.RiskLevelHigh || result.RiskLevel == types.RiskLevelCritical {
		eventType = securityevent.TypeThreatDetected
		severity = securityevent.SeverityHigh
		a.raiseAlert(ctx, result)
	}
	a.recorder.Record(&securityevent.SecurityEvent{
		Type:     eventType,
		Severity: severity,
		Source:   "threatintel",
		IP:       result.IP,
		Details: domain.JSONMap{
			"score":      result.Score,
			"risk_level": string(result.RiskLevel),
			"is_tor":     result.IsTor,
			"is_vpn":     result.IsVPN,
			"is_proxy":   result.IsProxy,
			"sources":    result.Sources,
		},
	})
}

// raiseAlert notifies operators about a freshly resolved high or critical
// verdict. The manager's cooldown keeps repeated checks from spamming.
func (a *Aggregator) raiseAlert(ctx context.Context, result *Result) {
	if a.alerter == nil {
		return
	}
	severity := alert.SeverityWarning
	if result.RiskLevel == types.RiskLevelCritical {
		severity = alert.SeverityCritical
	}
	a.alerter.Trigger(ctx, alert.TypeHighRiskIP, severity, "threatintel",
		fmt.Sprintf("ip %s scored %d (%s)", result.IP, result.Score, result.RiskLevel),
		domain.JSONMap{
			"ip":         result.IP,
			"score":      result.Score,
			"risk_level": string(result.RiskLevel),
			"sources":    result.Sources,
		})
}

func (a *Aggregator) weightFor(name string) float64 {
	for _, wp := range a.providers {
		if wp.Provider.Name() == name {
			return wp.Weight
		}
	}
	return 0
}
