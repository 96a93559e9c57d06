package ipqualityscore

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

const ProviderName = "ipqualityscore"

const (
	defaultBaseURL   = "https://ipqualityscore.com/api/json/ip"
	breakerTimeout   = 30 * time.Second
	breakerThreshold = 5
)

type Config struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Strictness int    `mapstructure:"strictness"`
}

func ValidateConfig(settings map[string]interface{}) error {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid ipqualityscore config: %w", err)
	}
	if conf.APIKey == "" {
		return errors.New("ipqualityscore api_key is required")
	}
	return nil
}

// Provider queries the IPQualityScore fraud endpoint. Its fraud_score maps
// directly to the 0-100 scale, and it is the only source carrying explicit
// VPN, proxy and Tor flags.
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
		return nil, fmt.Errorf("invalid ipqualityscore config: %w", err)
	}
	if conf.APIKey == "" {
		return nil, errors.New("ipqualityscore api_key is required")
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
	endpoint := fmt.Sprintf("%s/%s/%s?strictness=%d",
		p.cfg.BaseURL, url.PathEscape(p.cfg.APIKey), url.PathEscape(ip), p.cfg.Strictness)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipqualityscore returned status %d", resp.StatusCode)
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
		return nil, fmt.Errorf("ipqualityscore response parse failed: %w", err)
	}
	if !value.GetBool("success") {
		return nil, fmt.Errorf("ipqualityscore rejected request: %s", value.GetStringBytes("message"))
	}

	return &providers.Report{
		Provider: ProviderName,
		Score:    value.GetInt("fraud_score"),
		IsTor:    value.GetBool("tor") || value.GetBool("active_tor"),
		IsVPN:    value.GetBool("vpn") || value.GetBool("active_vpn"),
		IsProxy:  value.GetBool("proxy"),
		TTL:      p.ttl,
	}, nil
}
