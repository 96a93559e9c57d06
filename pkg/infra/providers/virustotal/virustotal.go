package virustotal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/valyala/fastjson"

	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/prometheus"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers"
)

const ProviderName = "virustotal"

const (
	defaultBaseURL   = "https://www.virustotal.com/api/v3"
	breakerTimeout   = 30 * time.Second
	breakerThreshold = 5
)

type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

func ValidateConfig(settings map[string]interface{}) error {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid virustotal config: %w", err)
	}
	if conf.APIKey == "" {
		return errors.New("virustotal api_key is required")
	}
	return nil
}

// Provider queries the VirusTotal v3 IP endpoint. The score is the share of
// engines flagging the address, scaled to 0-100. Suspicious votes count half.
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
		return nil, fmt.Errorf("invalid virustotal config: %w", err)
	}
	if conf.APIKey == "" {
		return nil, errors.New("virustotal api_key is required")
	}
	if conf.BaseURL == "" {
		conf.BaseURL = defaultBaseURL
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
	endpoint := fmt.Sprintf("%s/ip_addresses/%s", p.cfg.BaseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-apikey", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unknown address: VirusTotal has no verdict, treat as clean.
		return &providers.Report{Provider: ProviderName, TTL: p.ttl}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("virustotal returned status %d", resp.StatusCode)
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
		return nil, fmt.Errorf("virustotal response parse failed: %w", err)
	}
	stats := value.Get("data", "attributes", "last_analysis_stats")
	if stats == nil {
		return nil, errors.New("virustotal response missing analysis stats")
	}

	malicious := float64(stats.GetInt("malicious"))
	suspicious := float64(stats.GetInt("suspicious"))
	harmless := float64(stats.GetInt("harmless"))
	undetected := float64(stats.GetInt("undetected"))

	total := malicious + suspicious + harmless + undetected
	score := 0
	if total > 0 {
		score = int((malicious + suspicious*0.5) / total * 100)
	}

	return &providers.Report{
		Provider: ProviderName,
		Score:    score,
		TTL:      p.ttl,
	}, nil
}
