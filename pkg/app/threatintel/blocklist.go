package threatintel

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/httpx"
)

const blocklistTTL = 2 * time.Hour

// TorBlocklist mirrors the public Tor exit node list into a Redis set and
// answers membership checks against it. The set outlives two refresh cycles
// so a failed fetch does not blank the list.
type TorBlocklist struct {
	url     string
	client  httpx.Client
	redis   *cache.Cache
	refresh time.Duration
	logger  *logrus.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewTorBlocklist(
	url string,
	client httpx.Client,
	redis *cache.Cache,
	refresh time.Duration,
	logger *logrus.Logger,
) *TorBlocklist {
	return &TorBlocklist{
		url:     url,
		client:  client,
		redis:   redis,
		refresh: refresh,
		logger:  logger,
	}
}

func (b *TorBlocklist) Contains(ctx context.Context, ip string) (bool, error) {
	return b.redis.Client().SIsMember(ctx, cache.TorExitSetKey, ip).Result()
}

// Refresh fetches the exit list and atomically replaces the Redis set.
func (b *TorBlocklist) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var members []interface{}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if net.ParseIP(line) != nil {
			members = append(members, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(members) == 0 {
		b.logger.Warn("tor exit list fetch returned no addresses, keeping previous set")
		return nil
	}

	pipe := b.redis.Client().TxPipeline()
	pipe.Del(ctx, cache.TorExitSetKey)
	pipe.SAdd(ctx, cache.TorExitSetKey, members...)
	pipe.Expire(ctx, cache.TorExitSetKey, blocklistTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	b.logger.WithField("exit_nodes", len(members)).Info("tor exit list refreshed")
	return nil
}

// Start refreshes immediately and then on the configured interval until Stop.
func (b *TorBlocklist) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)

		if err := b.Refresh(ctx); err != nil {
			b.logger.WithError(err).Warn("initial tor exit list refresh failed")
		}

		ticker := time.NewTicker(b.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.Refresh(ctx); err != nil {
					b.logger.WithError(err).Warn("tor exit list refresh failed")
				}
			}
		}
	}()
}

func (b *TorBlocklist) Stop() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
}
