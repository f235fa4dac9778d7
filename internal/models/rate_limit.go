package models

import "time"

// RateLimitRecord tracks request attempts per (client key, endpoint).
// Once BlockedUntil is set, requests are rejected until it passes,
// regardless of further attempts. Records are retained for 24 hours and
// deleted explicitly when a throttled action legitimately succeeds.
type RateLimitRecord struct {
	Base
	ClientKey    string     `gorm:"index:idx_rate_limit_key,unique;not null"`
	Endpoint     string     `gorm:"index:idx_rate_limit_key,unique;not null"`
	Attempts     int        `gorm:"not null;default:0"`
	FirstAttempt time.Time  `gorm:"not null"`
	LastAttempt  time.Time  `gorm:"not null"`
	BlockedUntil *time.Time `gorm:"index"`
}
