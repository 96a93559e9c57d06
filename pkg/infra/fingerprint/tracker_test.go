package fingerprint_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/fingerprint"
)

// unorderedArgs compares command arguments as sets. Index keys come out of a
// map, so SUNION argument order is not deterministic.
func unorderedArgs(expected, actual []interface{}) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("expected %d args, got %d", len(expected), len(actual))
	}
	e := make([]string, len(expected))
	a := make([]string, len(actual))
	for i := range expected {
		e[i] = fmt.Sprint(expected[i])
		a[i] = fmt.Sprint(actual[i])
	}
	sort.Strings(e)
	sort.Strings(a)
	for i := range e {
		if e[i] != a[i] {
			return fmt.Errorf("expected arg %q, got %q", e[i], a[i])
		}
	}
	return nil
}

func TestTracker_SeenCount(t *testing.T) {
	client, mock := redismock.NewClientMock()
	tracker := fingerprint.NewTracker(cache.NewCacheWithClient(client))

	t.Run("returns the counter", func(t *testing.T) {
		mock.ExpectGet("fp:hash-1:seen").SetVal("4")
		count, err := tracker.SeenCount(context.Background(), "hash-1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("unseen hash is zero", func(t *testing.T) {
		mock.ExpectGet("fp:hash-2:seen").RedisNil()
		count, err := tracker.SeenCount(context.Background(), "hash-2")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestTracker_Blocking(t *testing.T) {
	client, mock := redismock.NewClientMock()
	tracker := fingerprint.NewTracker(cache.NewCacheWithClient(client))
	fp := &fingerprint.Fingerprint{Hash: "hash-1", DeviceID: "device-1"}

	mock.ExpectExists("fp:device-1:blocked").SetVal(0)
	blocked, err := tracker.IsBlocked(context.Background(), fp)
	require.NoError(t, err)
	assert.False(t, blocked)

	mock.ExpectExists("fp:device-1:blocked").SetVal(1)
	blocked, err = tracker.IsBlocked(context.Background(), fp)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestTracker_FindSimilar(t *testing.T) {
	t.Run("needs at least two index buckets", func(t *testing.T) {
		client, _ := redismock.NewClientMock()
		tracker := fingerprint.NewTracker(cache.NewCacheWithClient(client))

		results, err := tracker.FindSimilar(context.Background(),
			&fingerprint.Fingerprint{Hash: "h", DeviceID: "device-1"}, 2)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("matches near-identical fingerprints", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.CustomMatch(unorderedArgs)
		tracker := fingerprint.NewTracker(cache.NewCacheWithClient(client))

		fp := &fingerprint.Fingerprint{
			Hash:      "hash-1",
			DeviceID:  "device-1",
			IP:        "203.0.113.10",
			UserAgent: "Mozilla/5.0 Chrome/120.0",
		}

		// Same device, one character apart on IP and user agent.
		neighbor := &fingerprint.Fingerprint{
			Hash:      "hash-2",
			DeviceID:  "device-1",
			IP:        "203.0.113.11",
			UserAgent: "Mozilla/5.0 Chrome/121.0",
		}
		neighborJSON, err := json.Marshal(neighbor)
		require.NoError(t, err)

		// Shares a bucket but matches on nothing else.
		stranger := &fingerprint.Fingerprint{
			Hash:      "hash-3",
			DeviceID:  "device-9",
			IP:        "198.51.100.200",
			UserAgent: "curl/8.0",
		}
		strangerJSON, err := json.Marshal(stranger)
		require.NoError(t, err)

		mock.ExpectSUnion(
			"fp_by_ip:203.0.113.10",
			"fp_by_device:device-1",
			"fp_by_ua:Mozilla/5.0 Chrome/120.0",
		).SetVal([]string{"hash-1", "hash-2", "hash-3"})
		mock.ExpectGet("fp:hash-2").SetVal(string(neighborJSON))
		mock.ExpectGet("fp:hash-3").SetVal(string(strangerJSON))

		results, err := tracker.FindSimilar(context.Background(), fp, 2)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "hash-2", results[0].Hash)
	})
}
