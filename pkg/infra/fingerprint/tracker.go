package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/utils"
)

const (
	DefaultExpiration = 24 * time.Hour

	fingerPrintKey         = "fp:%s"
	fingerPrintSeenKey     = "fp:%s:seen"
	fingerPrintBlockedKey  = "fp:%s:blocked"
	fingerPrintByIpKey     = "fp_by_ip:%s"
	fingerPrintByDeviceKey = "fp_by_device:%s"
	fingerPrintByUserKey   = "fp_by_user:%s"
	fingerPrintByUAKey     = "fp_by_ua:%s"
)

// Tracker maintains the fingerprint similarity index in Redis: a record per
// hash plus per-attribute secondary sets used to find near matches.
type Tracker interface {
	Store(ctx context.Context, fp *Fingerprint, ttl time.Duration) error
	SeenCount(ctx context.Context, hash string) (int64, error)
	FindSimilar(ctx context.Context, fp *Fingerprint, maxDistance int) ([]*Fingerprint, error)
	IsBlocked(ctx context.Context, fp *Fingerprint) (bool, error)
	Block(ctx context.Context, fp *Fingerprint, duration time.Duration) error
}

type tracker struct {
	redis *cache.Cache
}

func NewTracker(redis *cache.Cache) Tracker {
	return &tracker{redis: redis}
}

func (t *tracker) Store(ctx context.Context, fp *Fingerprint, ttl time.Duration) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return err
	}

	pipe := t.redis.Client().TxPipeline()

	pipe.Set(ctx, fmt.Sprintf(fingerPrintKey, fp.Hash), data, ttl)

	pipe.Incr(ctx, fmt.Sprintf(fingerPrintSeenKey, fp.Hash))
	pipe.Expire(ctx, fmt.Sprintf(fingerPrintSeenKey, fp.Hash), ttl)

	for key, member := range t.indexKeys(fp) {
		pipe.SAdd(ctx, key, member)
		pipe.Expire(ctx, key, ttl)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (t *tracker) SeenCount(ctx context.Context, hash string) (int64, error) {
	count, err := t.redis.Client().Get(ctx, fmt.Sprintf(fingerPrintSeenKey, hash)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FindSimilar returns prior fingerprints sharing at least two index buckets
// with near-identical attribute values.
func (t *tracker) FindSimilar(ctx context.Context, fp *Fingerprint, maxDistance int) ([]*Fingerprint, error) {
	keys := make([]string, 0, 4)
	for key := range t.indexKeys(fp) {
		keys = append(keys, key)
	}
	if len(keys) < 2 {
		return nil, nil
	}

	hashes, err := t.redis.Client().SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var results []*Fingerprint
	for _, hash := range hashes {
		if hash == fp.Hash {
			continue
		}
		data, err := t.redis.Client().Get(ctx, fmt.Sprintf(fingerPrintKey, hash)).Bytes()
		if err != nil {
			continue
		}
		var other Fingerprint
		if err := json.Unmarshal(data, &other); err != nil {
			continue
		}

		matchCount := 0
		if fp.IP != "" && utils.LevenshteinDistance(fp.IP, other.IP) <= maxDistance {
			matchCount++
		}
		if fp.UserAgent != "" && utils.LevenshteinDistance(fp.UserAgent, other.UserAgent) <= maxDistance {
			matchCount++
		}
		if fp.UserID != "" && fp.UserID == other.UserID {
			matchCount++
		}
		if fp.DeviceID == other.DeviceID {
			matchCount++
		}
		if matchCount >= 2 {
			results = append(results, &other)
		}
	}

	return results, nil
}

func (t *tracker) IsBlocked(ctx context.Context, fp *Fingerprint) (bool, error) {
	exists, err := t.redis.Client().Exists(ctx, fmt.Sprintf(fingerPrintBlockedKey, fp.DeviceID)).Result()
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (t *tracker) Block(ctx context.Context, fp *Fingerprint, duration time.Duration) error {
	return t.redis.Client().Set(ctx, fmt.Sprintf(fingerPrintBlockedKey, fp.DeviceID), "1", duration).Err()
}

func (t *tracker) indexKeys(fp *Fingerprint) map[string]string {
	keys := make(map[string]string, 4)
	if fp.IP != "" {
		keys[fmt.Sprintf(fingerPrintByIpKey, fp.IP)] = fp.Hash
	}
	if fp.DeviceID != "" {
		keys[fmt.Sprintf(fingerPrintByDeviceKey, fp.DeviceID)] = fp.Hash
	}
	if fp.UserID != "" {
		keys[fmt.Sprintf(fingerPrintByUserKey, fp.UserID)] = fp.Hash
	}
	if fp.UserAgent != "" {
		keys[fmt.Sprintf(fingerPrintByUAKey, fp.UserAgent)] = fp.Hash
	}
	return keys
}
