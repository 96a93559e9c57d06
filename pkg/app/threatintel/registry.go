package threatintel

import (
	"fmt"
	"time"

	"github.com/pranaysuyash/metaextract-sub011/pkg/config"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers/abuseipdb"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers/ipqualityscore"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/providers/virustotal"
)

const defaultProviderTimeout = 5 * time.Second

// WeightedProvider pairs a reputation source with its share of the composite
// score and its per-call deadline.
type WeightedProvider struct {
	Provider providers.Provider
	Weight   float64
	Timeout  time.Duration
}

// BuildProviders constructs the enabled providers from configuration.
// Unknown provider names are an error; a misconfigured source should fail
// startup, not silently shrink the aggregate.
func BuildProviders(cfgs []config.ProviderConfig, client httpx.Client) ([]WeightedProvider, error) {
	var built []WeightedProvider
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		ttl := time.Duration(cfg.CacheTTLMin) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}

		var (
			provider providers.Provider
			err      error
		)
		switch cfg.Name {
		case abuseipdb.ProviderName:
			provider, err = abuseipdb.NewProvider(cfg.Settings, client, ttl)
		case virustotal.ProviderName:
			provider, err = virustotal.NewProvider(cfg.Settings, client, ttl)
		case ipqualityscore.ProviderName:
			provider, err = ipqualityscore.NewProvider(cfg.Settings, client, ttl)
		default:
			return nil, fmt.Errorf("unknown threat intel provider: %s", cfg.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", cfg.Name, err)
		}

		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = defaultProviderTimeout
		}
		built = append(built, WeightedProvider{
			Provider: provider,
			Weight:   cfg.Weight,
			Timeout:  timeout,
		})
	}
	return built, nil
}
