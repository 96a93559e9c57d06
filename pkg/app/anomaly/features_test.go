package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
)

func testExtractor() *Extractor {
	return NewExtractor(20, 10, 22, 6)
}

func historyOf(n int, build func(i int) Record) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = build(i)
	}
	return records
}

func TestExtractor_Extract_Bounds(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	current := Record{Timestamp: now, IP: "203.0.113.10", FileSize: 1 << 20, GeoCountry: "DE"}
	req := &types.RequestContext{IP: "203.0.113.10", Timestamp: now}

	history := historyOf(200, func(i int) Record {
		return Record{
			Timestamp:       now.Add(-time.Duration(i) * time.Second),
			IP:              "203.0.113.10",
			DeviceID:        "device-1",
			FingerprintHash: "hash-1",
			FileSize:        1 << 20,
			GeoCountry:      "DE",
		}
	})

	v := testExtractor().Extract(req, current, history)

	for name, value := range v.Map() {
		f, ok := value.(float64)
		assert.True(t, ok, name)
		assert.GreaterOrEqual(t, f, 0.0, name)
		assert.LessOrEqual(t, f, 1.0, name)
	}
	// A flood of identical requests saturates frequency and burst.
	assert.Equal(t, 1.0, v.Frequency)
	assert.Equal(t, 1.0, v.Burst)
	assert.Zero(t, v.IPInstability)
	assert.Zero(t, v.DeviceInstability)
}

func TestExtractor_Frequency_TrailingHour(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	req := &types.RequestContext{IP: "203.0.113.10", Timestamp: now}
	current := Record{Timestamp: now, IP: "203.0.113.10"}

	// A day of slow activity with nothing inside the trailing hour counts
	// only the current upload, no matter how long the history is.
	history := historyOf(19, func(i int) Record {
		return Record{
			Timestamp: now.Add(-time.Duration(i+2) * time.Hour),
			IP:        "203.0.113.10",
		}
	})

	v := testExtractor().Extract(req, current, history)
	assert.InDelta(t, 0.05, v.Frequency, 0.001)
}

func TestExtractor_Burst(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	req := &types.RequestContext{IP: "203.0.113.10", Timestamp: now}
	current := Record{Timestamp: now, IP: "203.0.113.10"}

	t.Run("cluster earlier in the window saturates", func(t *testing.T) {
		// Twelve uploads packed into one minute, ten minutes ago. The
		// current request is quiet but the burst already happened.
		history := historyOf(12, func(i int) Record {
			return Record{Timestamp: now.Add(-10*time.Minute - time.Duration(i)*5*time.Second)}
		})
		v := testExtractor().Extract(req, current, history)
		assert.Equal(t, 1.0, v.Burst)
	})

	t.Run("evenly paced history stays low", func(t *testing.T) {
		history := historyOf(12, func(i int) Record {
			return Record{Timestamp: now.Add(-time.Duration(i+1) * 10 * time.Minute)}
		})
		v := testExtractor().Extract(req, current, history)
		assert.InDelta(t, 0.1, v.Burst, 0.001)
	})
}

func TestExtractor_Instability(t *testing.T) {
	now := time.Now()
	req := &types.RequestContext{IP: "203.0.113.10", Timestamp: now}
	current := Record{Timestamp: now, IP: "203.0.113.10"}

	t.Run("identity hopping scores high", func(t *testing.T) {
		history := historyOf(10, func(i int) Record {
			return Record{
				Timestamp: now.Add(-time.Duration(i) * time.Minute),
				IP:        "203.0.113." + string(rune('1'+i)),
				DeviceID:  "device-" + string(rune('a'+i)),
			}
		})
		v := testExtractor().Extract(req, current, history)
		assert.Equal(t, 1.0, v.IPInstability)
		assert.Equal(t, 1.0, v.DeviceInstability)
	})

	t.Run("stable identity scores zero", func(t *testing.T) {
		history := historyOf(10, func(i int) Record {
			return Record{
				Timestamp: now.Add(-time.Duration(i) * time.Minute),
				IP:        "203.0.113.10",
				DeviceID:  "device-1",
			}
		})
		v := testExtractor().Extract(req, current, history)
		assert.Zero(t, v.IPInstability)
		assert.Zero(t, v.DeviceInstability)
	})
}

func TestExtractor_GeoSpread(t *testing.T) {
	now := time.Now()
	req := &types.RequestContext{IP: "203.0.113.10", Timestamp: now}

	t.Run("distinct countries over total observations", func(t *testing.T) {
		history := historyOf(4, func(i int) Record {
			countries := []string{"DE", "US", "BR", "SG"}
			return Record{
				Timestamp:  now.Add(-time.Duration(i) * time.Minute),
				GeoCountry: countries[i],
			}
		})
		current := Record{Timestamp: now, GeoCountry: "JP"}

		// Five countries across five observations: (5-1)/5.
		v := testExtractor().Extract(req, current, history)
		assert.InDelta(t, 0.8, v.GeoSpread, 0.001)
	})

	t.Run("single country scores zero regardless of volume", func(t *testing.T) {
		history := historyOf(40, func(i int) Record {
			return Record{
				Timestamp:  now.Add(-time.Duration(i) * time.Minute),
				GeoCountry: "DE",
			}
		})
		current := Record{Timestamp: now, GeoCountry: "DE"}

		v := testExtractor().Extract(req, current, history)
		assert.Zero(t, v.GeoSpread)
	})
}

func TestTimeIrregularity(t *testing.T) {
	base := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	t.Run("fixed daily routine scores zero", func(t *testing.T) {
		history := historyOf(20, func(i int) Record {
			return Record{Timestamp: base.Add(14 * time.Hour)}
		})
		assert.Zero(t, timeIrregularity(base.Add(14*time.Hour), history))
	})

	t.Run("activity smeared across every hour saturates", func(t *testing.T) {
		history := historyOf(23, func(i int) Record {
			return Record{Timestamp: base.Add(time.Duration(i+1) * time.Hour)}
		})
		assert.InDelta(t, 1.0, timeIrregularity(base, history), 0.001)
	})
}

func TestExtractor_IsOffHours(t *testing.T) {
	e := testExtractor()

	assert.True(t, e.IsOffHours(time.Date(2026, 8, 25, 23, 0, 0, 0, time.UTC)))
	assert.True(t, e.IsOffHours(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)))
	assert.False(t, e.IsOffHours(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)))
	assert.False(t, e.IsOffHours(time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)))
}

func TestFileSizeDeviation(t *testing.T) {
	now := time.Now()
	history := historyOf(20, func(i int) Record {
		return Record{Timestamp: now, FileSize: 1 << 20}
	})

	t.Run("typical size is zero", func(t *testing.T) {
		assert.Zero(t, fileSizeDeviation(1<<20, history))
	})

	t.Run("outlier on constant history saturates", func(t *testing.T) {
		assert.Equal(t, 1.0, fileSizeDeviation(100<<20, history))
	})

	t.Run("thin history abstains", func(t *testing.T) {
		assert.Zero(t, fileSizeDeviation(100<<20, history[:2]))
	})
}

func TestFileSizeVariance(t *testing.T) {
	now := time.Now()

	t.Run("constant sizes score zero", func(t *testing.T) {
		history := historyOf(10, func(i int) Record {
			return Record{Timestamp: now, FileSize: 1 << 20}
		})
		assert.Zero(t, fileSizeVariance(history))
	})

	t.Run("wild swings score high", func(t *testing.T) {
		history := historyOf(10, func(i int) Record {
			size := int64(1 << 20)
			if i%2 == 0 {
				size = 9 << 20
			}
			return Record{Timestamp: now, FileSize: size}
		})
		// Mean 5 MiB, sigma 4 MiB: coefficient of variation 0.8.
		assert.InDelta(t, 0.8, fileSizeVariance(history), 0.001)
	})

	t.Run("thin history abstains", func(t *testing.T) {
		assert.Zero(t, fileSizeVariance(historyOf(2, func(i int) Record {
			return Record{Timestamp: now, FileSize: int64(i+1) << 20}
		})))
	})
}
