package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pranaysuyash/metaextract-sub011/pkg/cache"
	"github.com/pranaysuyash/metaextract-sub011/pkg/common"
	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

const (
	burstWindow     = 5 * time.Minute
	frequencyWindow = time.Hour
)

// Record is one historical upload observation for a requester, kept in a
// Redis list keyed by the requester key.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	IP              string    `json:"ip"`
	DeviceID        string    `json:"device_id"`
	FingerprintHash string    `json:"fingerprint_hash"`
	FileSize        int64     `json:"file_size"`
	FileType        string    `json:"file_type"`
	GeoCountry      string    `json:"geo_country"`
}

// FeatureVector holds the normalized behavioral features, each in [0, 1].
// Higher means more suspicious.
type FeatureVector struct {
	Frequency              float64 `json:"frequency"`
	FileSizeDeviation      float64 `json:"file_size_deviation"`
	FileSizeVariance       float64 `json:"file_size_variance"`
	IPInstability          float64 `json:"ip_instability"`
	DeviceInstability      float64 `json:"device_instability"`
	TimeIrregularity       float64 `json:"time_irregularity"`
	GeoSpread              float64 `json:"geo_spread"`
	FingerprintInstability float64 `json:"fingerprint_instability"`
	Burst                  float64 `json:"burst"`
}

// Map flattens the vector for persistence in a training sample.
func (v FeatureVector) Map() map[string]interface{} {
	data, _ := json.Marshal(v)
	out := make(map[string]interface{})
	_ = json.Unmarshal(data, &out)
	return out
}

// History reads and appends per-requester behavior records.
type History struct {
	redis      *cache.Cache
	maxRecords int
}

func NewHistory(redis *cache.Cache, maxRecords int) *History {
	return &History{redis: redis, maxRecords: maxRecords}
}

func (h *History) Append(ctx context.Context, requesterKey string, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(cache.BehaviorKeyPattern, requesterKey)

	pipe := h.redis.Client().TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(h.maxRecords-1))
	pipe.Expire(ctx, key, common.BehaviorHistoryTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the records inside the window, newest first.
func (h *History) Recent(ctx context.Context, requesterKey string, window time.Duration) ([]Record, error) {
	key := fmt.Sprintf(cache.BehaviorKeyPattern, requesterKey)
	raw, err := h.redis.Client().LRange(ctx, key, 0, int64(h.maxRecords-1)).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-window)
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var record Record
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			break
		}
		records = append(records, record)
	}
	return records, nil
}

// Extractor turns a request plus its history into a feature vector.
type Extractor struct {
	frequencyCeiling int
	burstThreshold   int
	offHoursStart    int
	offHoursEnd      int
}

func NewExtractor(frequencyCeiling, burstThreshold, offHoursStart, offHoursEnd int) *Extractor {
	return &Extractor{
		frequencyCeiling: frequencyCeiling,
		burstThreshold:   burstThreshold,
		offHoursStart:    offHoursStart,
		offHoursEnd:      offHoursEnd,
	}
}

func (e *Extractor) Extract(req *types.RequestContext, current Record, history []Record) FeatureVector {
	now := current.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	return FeatureVector{
		Frequency:              clamp01(float64(countSince(history, now.Add(-frequencyWindow))+1) / float64(e.frequencyCeiling)),
		FileSizeDeviation:      fileSizeDeviation(current.FileSize, history),
		FileSizeVariance:       fileSizeVariance(history),
		IPInstability:          instability(history, func(r Record) string { return r.IP }),
		DeviceInstability:      instability(history, func(r Record) string { return r.DeviceID }),
		TimeIrregularity:       timeIrregularity(now, history),
		GeoSpread:              geoSpread(current.GeoCountry, history),
		FingerprintInstability: instability(history, func(r Record) string { return r.FingerprintHash }),
		Burst:                  clamp01(float64(maxBurst(now, history)) / float64(e.burstThreshold)),
	}
}

// IsOffHours reports whether t falls inside the quiet window. The window may
// wrap past midnight.
func (e *Extractor) IsOffHours(t time.Time) bool {
	hour := t.Hour()
	if e.offHoursStart <= e.offHoursEnd {
		return hour >= e.offHoursStart && hour < e.offHoursEnd
	}
	return hour >= e.offHoursStart || hour < e.offHoursEnd
}

// fileSizeDeviation measures how far the current size sits from the
// requester's historical mean, in standard deviations, squashed to [0, 1].
func fileSizeDeviation(size int64, history []Record) float64 {
	if size == 0 || len(history) < 3 {
		return 0
	}
	var sum, sumSq float64
	for _, r := range history {
		v := float64(r.FileSize)
		sum += v
		sumSq += v * v
	}
	n := float64(len(history))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance <= 0 {
		if float64(size) == mean {
			return 0
		}
		return 1
	}
	deviation := math.Abs(float64(size)-mean) / math.Sqrt(variance)
	return clamp01(deviation / 3)
}

// fileSizeVariance is the coefficient of variation of the historical sizes.
// A requester whose uploads swing wildly in size scores near 1.
func fileSizeVariance(history []Record) float64 {
	if len(history) < 3 {
		return 0
	}
	var sum, sumSq float64
	for _, r := range history {
		v := float64(r.FileSize)
		sum += v
		sumSq += v * v
	}
	n := float64(len(history))
	mean := sum / n
	if mean <= 0 {
		return 0
	}
	variance := sumSq/n - mean*mean
	if variance <= 0 {
		return 0
	}
	return clamp01(math.Sqrt(variance) / mean)
}

// instability is the distinct-values ratio of one field over the history.
// A requester hopping identities every request scores near 1.
func instability(history []Record, field func(Record) string) float64 {
	if len(history) < 2 {
		return 0
	}
	distinct := make(map[string]struct{}, len(history))
	for _, r := range history {
		if v := field(r); v != "" {
			distinct[v] = struct{}{}
		}
	}
	if len(distinct) <= 1 {
		return 0
	}
	return clamp01(float64(len(distinct)-1) / float64(len(history)-1))
}

// timeIrregularity is the normalized Shannon entropy of the hour-of-day
// histogram. A requester with a fixed daily routine concentrates into a few
// buckets and scores near 0; activity smeared across the clock scores near 1.
func timeIrregularity(now time.Time, history []Record) float64 {
	var hours [24]int
	hours[now.Hour()]++
	for _, r := range history {
		hours[r.Timestamp.Hour()]++
	}
	total := float64(len(history) + 1)

	var entropy float64
	for _, count := range hours {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return clamp01(entropy / math.Log2(24))
}

// geoSpread is the share of the window's geo observations beyond the first
// distinct country. One country scores 0 regardless of volume.
func geoSpread(current string, history []Record) float64 {
	countries := make(map[string]struct{})
	total := 0
	if current != "" {
		countries[current] = struct{}{}
		total++
	}
	for _, r := range history {
		if r.GeoCountry != "" {
			countries[r.GeoCountry] = struct{}{}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(float64(len(countries)-1) / float64(total))
}

func countSince(history []Record, cutoff time.Time) int {
	count := 0
	for _, r := range history {
		if r.Timestamp.Before(cutoff) {
			break
		}
		count++
	}
	return count
}

// maxBurst is the largest number of uploads, current one included, that fall
// inside any trailing burst window over the history. A burst buried earlier
// in the window still counts even when the current request is quiet.
func maxBurst(now time.Time, history []Record) int {
	times := make([]time.Time, 0, len(history)+1)
	times = append(times, now)
	for _, r := range history {
		times = append(times, r.Timestamp)
	}

	// times is newest first; slide a window of consecutive entries.
	best := 0
	start := 0
	for end := 0; end < len(times); end++ {
		for times[start].Sub(times[end]) > burstWindow {
			start++
		}
		if span := end - start + 1; span > best {
			best = span
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
