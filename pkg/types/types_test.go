package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, RiskLevelLow, LevelForScore(0))
	assert.Equal(t, RiskLevelLow, LevelForScore(24))
	assert.Equal(t, RiskLevelMedium, LevelForScore(25))
	assert.Equal(t, RiskLevelMedium, LevelForScore(49))
	assert.Equal(t, RiskLevelHigh, LevelForScore(50))
	assert.Equal(t, RiskLevelHigh, LevelForScore(69))
	assert.Equal(t, RiskLevelCritical, LevelForScore(70))
	assert.Equal(t, RiskLevelCritical, LevelForScore(100))
}

func TestLevelForScore_Monotonic(t *testing.T) {
	order := map[RiskLevel]int{
		RiskLevelLow:      0,
		RiskLevelMedium:   1,
		RiskLevelHigh:     2,
		RiskLevelCritical: 3,
	}
	previous := 0
	for score := 0; score <= 100; score++ {
		current := order[LevelForScore(score)]
		assert.GreaterOrEqual(t, current, previous, "score %d", score)
		previous = current
	}
}

func TestActionForLevel(t *testing.T) {
	assert.Equal(t, ActionAllow, ActionForLevel(RiskLevelLow))
	assert.Equal(t, ActionAllow, ActionForLevel(RiskLevelMedium))
	assert.Equal(t, ActionChallenge, ActionForLevel(RiskLevelHigh))
	assert.Equal(t, ActionBlock, ActionForLevel(RiskLevelCritical))
}

func TestRequestContext_RequesterKey(t *testing.T) {
	authenticated := &RequestContext{IP: "203.0.113.10", UserID: "alice"}
	assert.Equal(t, "user:alice", authenticated.RequesterKey())

	anonymous := &RequestContext{IP: "203.0.113.10"}
	assert.Equal(t, "ip:203.0.113.10", anonymous.RequesterKey())
}

func TestRequestContext_Header(t *testing.T) {
	req := &RequestContext{Headers: map[string][]string{
		"User-Agent": {"curl/8.0", "second"},
	}}
	assert.Equal(t, "curl/8.0", req.Header("User-Agent"))
	assert.Empty(t, req.Header("Missing"))
}
