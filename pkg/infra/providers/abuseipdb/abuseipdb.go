package abuseipdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/valyala/fastjson"

	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/prometheus"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers"
)

const ProviderName = "abuseipdb"

const (
	defaultBaseURL   = "https://api.abuseipdb.com/api/v2"
	defaultMaxAge    = 90
	breakerTimeout   = 30 * time.Second
	breakerThreshold = 5
)

// Category codes from the AbuseIPDB taxonomy used for report submissions.
var categoryCodes = map[string]string{
	"fraud":       "3",
	"ddos":        "4",
	"brute-force": "18",
	"web-abuse":   "21",
	"bot":         "19",
}

type Config struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	MaxAgeInDays int    `mapstructure:"max_age_in_days"`
}

func ValidateConfig(settings map[string]interface{}) error {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid abuseipdb config: %w", err)
	}
	if conf.APIKey == "" {
		return errors.New("abuseipdb api_key is required")
	}
	return nil
}

// Provider queries the AbuseIPDB v2 check endpoint. The confidence score is
// already on the 0-100 scale the aggregator expects.
type Provider struct {
	cfg     Config
	client  httpx.Client
	breaker httpx.CircuitBreaker
	ttl     time.Duration
	parsers fastjson.ParserPool
}

func NewProvider(settings map[string]interface{}, client httpx.Client, ttl time.Duration) (*Provider, error) {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid abuseipdb config: %w", err)
	}
	if conf.APIKey == "" {
		return nil, errors.New("abuseipdb api_key is required")
	}
	if conf.BaseURL == "" {
		conf.BaseURL = defaultBaseURL
	}
	if conf.MaxAgeInDays == 0 {
		conf.MaxAgeInDays = defaultMaxAge
	}
	return &Provider{
		cfg:     conf,
		client:  client,
		breaker: httpx.NewCircuitBreaker(ProviderName, breakerTimeout, breakerThreshold),
		ttl:     ttl,
	}, nil
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) Check(ctx context.Context, ip string) (*providers.Report, error) {
	var report *providers.Report
	start := time.Now()

	err := p.breaker.Execute(func() error {
		var err error
		report, err = p.check(ctx, ip)
		return err
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	prometheus.ProviderLatency.WithLabelValues(ProviderName, outcome).
		Observe(float64(time.Since(start).Milliseconds()))

	return report, err
}

func (p *Provider) check(ctx context.Context, ip string) (*providers.Report, error) {
	endpoint := fmt.Sprintf("%s/check?ipAddress=%s&maxAgeInDays=%d",
		p.cfg.BaseURL, url.QueryEscape(ip), p.cfg.MaxAgeInDays)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Key", p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("abuseipdb returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return p.parse(body)
}

func (p *Provider) parse(body []byte) (*providers.Report, error) {
	parser := p.parsers.Get()
	defer p.parsers.Put(parser)

	value, err := parser.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("abuseipdb response parse failed: %w", err)
	}
	data := value.Get("data")
	if data == nil {
		return nil, errors.New("abuseipdb response missing data")
	}

	report := &providers.Report{
		Provider: ProviderName,
		Score:    data.GetInt("abuseConfidenceScore"),
		IsTor:    data.GetBool("isTor"),
		TTL:      p.ttl,
	}
	usageType := string(data.GetStringBytes("usageType"))
	if strings.Contains(strings.ToLower(usageType), "vpn") {
		report.IsVPN = true
	}
	return report, nil
}

// ReportMalicious submits an abuse report. Unknown category names are
// dropped; an empty set falls back to the generic web-abuse code.
func (p *Provider) ReportMalicious(ctx context.Context, ip string, categories []string, comment string) error {
	codes := make([]string, 0, len(categories))
	for _, category := range categories {
		if code, ok := categoryCodes[category]; ok {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		codes = append(codes, categoryCodes["web-abuse"])
	}

	form := url.Values{}
	form.Set("ip", ip)
	form.Set("categories", strings.Join(codes, ","))
	form.Set("comment", comment)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/report", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Key", p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return p.breaker.Execute(func() error {
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("abuseipdb report returned status %d", resp.StatusCode)
		}
		return nil
	})
}
