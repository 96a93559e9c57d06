package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Attribute keys recognized by the generator. Client-reported values are
// untrusted and only ever raise suspicion, never lower it.
const (
	AttrUserAgent      = "user_agent"
	AttrAcceptLanguage = "accept_language"
	AttrAcceptEncoding = "accept_encoding"
	AttrIP             = "ip"
	AttrGeoCountry     = "geo_country"
	AttrPlatform       = "platform"
	AttrScreenRes      = "screen_resolution"
	AttrHardwareCores  = "hardware_concurrency"
	AttrDeviceMemory   = "device_memory"
	AttrTimezone       = "timezone"
	AttrCanvas         = "canvas_fingerprint"
	AttrWebGL          = "webgl_fingerprint"
	AttrAudio          = "audio_fingerprint"
	AttrFonts          = "fonts"
	AttrPlugins        = "plugins"
	AttrTouchSupport   = "touch_support"
	AttrCookiesEnabled = "cookies_enabled"
	AttrLanguages      = "languages"
)

// stableAttributes is the low-volatility subset that defines the device
// identity. Rendering-derived signals (canvas/webgl/audio) and per-session
// values (ip, plugins) are deliberately excluded so the same physical device
// keeps the same DeviceID across sessions.
var stableAttributes = []string{
	AttrUserAgent,
	AttrPlatform,
	AttrScreenRes,
	AttrHardwareCores,
	AttrDeviceMemory,
	AttrTimezone,
}

// Fingerprint is the in-memory device signature built per request. It is
// immutable after generation.
type Fingerprint struct {
	Attributes map[string]string `json:"attributes"`
	Hash       string            `json:"hash"`
	DeviceID   string            `json:"device_id"`
	IP         string            `json:"ip"`
	UserID     string            `json:"user_id"`
	UserAgent  string            `json:"user_agent"`
	Confidence float64           `json:"confidence"`
	Anomalies  []string          `json:"anomalies"`

	// HasClientData records whether a collector payload accompanied the
	// request, so "reported empty" can be told apart from "not reported".
	HasClientData bool `json:"has_client_data"`
}

// hashAttributes folds a sorted view of the given keys into a hex digest, so
// the result is a pure, order-independent function of the attribute set.
func hashAttributes(attrs map[string]string, keys []string) string {
	sorted := make([]string, 0, len(keys))
	for _, key := range keys {
		if value, ok := attrs[key]; ok && value != "" {
			sorted = append(sorted, fmt.Sprintf("%s=%s", key, value))
		}
	}
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

// ComputeHash digests the full attribute set.
func ComputeHash(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	return hashAttributes(attrs, keys)
}

// ComputeDeviceID digests only the stable subset.
func ComputeDeviceID(attrs map[string]string) string {
	return hashAttributes(attrs, stableAttributes)
}
