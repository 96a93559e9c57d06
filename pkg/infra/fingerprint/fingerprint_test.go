package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHash(t *testing.T) {
	attrs := map[string]string{
		AttrUserAgent: "Mozilla/5.0",
		AttrPlatform:  "Linux",
		AttrIP:        "203.0.113.10",
	}

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, ComputeHash(attrs), ComputeHash(attrs))
	})

	t.Run("ignores insertion order", func(t *testing.T) {
		reordered := map[string]string{
			AttrIP:        "203.0.113.10",
			AttrPlatform:  "Linux",
			AttrUserAgent: "Mozilla/5.0",
		}
		assert.Equal(t, ComputeHash(attrs), ComputeHash(reordered))
	})

	t.Run("changes with any attribute", func(t *testing.T) {
		changed := map[string]string{
			AttrUserAgent: "Mozilla/5.0",
			AttrPlatform:  "Linux",
			AttrIP:        "203.0.113.11",
		}
		assert.NotEqual(t, ComputeHash(attrs), ComputeHash(changed))
	})

	t.Run("skips empty values", func(t *testing.T) {
		withEmpty := map[string]string{
			AttrUserAgent: "Mozilla/5.0",
			AttrPlatform:  "Linux",
			AttrIP:        "203.0.113.10",
			AttrCanvas:    "",
		}
		assert.Equal(t, ComputeHash(attrs), ComputeHash(withEmpty))
	})
}

func TestComputeDeviceID(t *testing.T) {
	base := map[string]string{
		AttrUserAgent:     "Mozilla/5.0",
		AttrPlatform:      "Linux",
		AttrScreenRes:     "1920x1080",
		AttrHardwareCores: "8",
		AttrDeviceMemory:  "16",
		AttrTimezone:      "Europe/Berlin",
	}

	t.Run("ignores volatile attributes", func(t *testing.T) {
		volatile := map[string]string{}
		for k, v := range base {
			volatile[k] = v
		}
		volatile[AttrIP] = "198.51.100.7"
		volatile[AttrCanvas] = "abc123"
		volatile[AttrPlugins] = "pdf,flash"

		assert.Equal(t, ComputeDeviceID(base), ComputeDeviceID(volatile))
	})

	t.Run("changes with stable attributes", func(t *testing.T) {
		other := map[string]string{}
		for k, v := range base {
			other[k] = v
		}
		other[AttrScreenRes] = "1280x720"

		assert.NotEqual(t, ComputeDeviceID(base), ComputeDeviceID(other))
	})
}
