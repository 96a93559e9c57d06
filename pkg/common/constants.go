package common

import "time"

// BehaviorHistoryTTL bounds how long per-requester upload history lives in
// Redis. The anomaly window can never exceed it.
const BehaviorHistoryTTL = 24 * time.Hour

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TLS      bool
}
