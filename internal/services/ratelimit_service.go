package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"likha/internal/logger"
	"likha/internal/models"
)

// RateLimitPolicy is a fixed per-endpoint budget: at most MaxAttempts
// within Window; exceeding it blocks the key for Block.
type RateLimitPolicy struct {
	MaxAttempts int
	Window      time.Duration
	Block       time.Duration
}

// DefaultRateLimitPolicies covers the throttled auth endpoints.
var DefaultRateLimitPolicies = map[string]RateLimitPolicy{
	"login":               {MaxAttempts: 5, Window: 15 * time.Minute, Block: 30 * time.Minute},
	"register":            {MaxAttempts: 3, Window: 60 * time.Minute, Block: 60 * time.Minute},
	"forgot-password":     {MaxAttempts: 3, Window: 60 * time.Minute, Block: 60 * time.Minute},
	"resend-verification": {MaxAttempts: 3, Window: 60 * time.Minute, Block: 60 * time.Minute},
}

// rateLimitRetention is how long a record survives after its last attempt.
const rateLimitRetention = 24 * time.Hour

// RateLimitStore persists one record per (client key, endpoint).
// Get returns (nil, nil) when no record exists.
type RateLimitStore interface {
	Get(ctx context.Context, key, endpoint string) (*models.RateLimitRecord, error)
	Save(ctx context.Context, record *models.RateLimitRecord) error
	Delete(ctx context.Context, key, endpoint string) error
}

// rateLimitService applies sliding-window counting with block escalation.
// Storage failures fail open: availability is prioritized over strict
// throttling, so a broken store never rejects a legitimate request.
type rateLimitService struct {
	store    RateLimitStore
	policies map[string]RateLimitPolicy
	now      func() time.Time
}

// NewRateLimitService creates a RateLimitServicer with the default policies.
func NewRateLimitService(store RateLimitStore) RateLimitServicer {
	return &rateLimitService{
		store:    store,
		policies: DefaultRateLimitPolicies,
		now:      time.Now,
	}
}

// Check records an attempt for (key, endpoint) and reports whether the
// request may proceed.
func (s *rateLimitService) Check(ctx context.Context, key, endpoint string) RateLimitResult {
	policy, ok := s.policies[endpoint]
	if !ok {
		// Unthrottled endpoint.
		return RateLimitResult{Allowed: true, Remaining: -1}
	}

	now := s.now()

	record, err := s.store.Get(ctx, key, endpoint)
	if err != nil {
		logger.Get().Warnw("rate limit store unreachable, failing open",
			"endpoint", endpoint, "error", err)
		return RateLimitResult{Allowed: true, Remaining: policy.MaxAttempts}
	}

	if record == nil {
		record = &models.RateLimitRecord{
			ClientKey:    key,
			Endpoint:     endpoint,
			Attempts:     1,
			FirstAttempt: now,
			LastAttempt:  now,
		}
		s.save(ctx, record)
		return RateLimitResult{
			Allowed:   true,
			Remaining: policy.MaxAttempts - 1,
			ResetAt:   now.Add(policy.Window),
		}
	}

	// An active block rejects regardless of new attempts.
	if record.BlockedUntil != nil && record.BlockedUntil.After(now) {
		return RateLimitResult{
			Allowed: false,
			ResetAt: *record.BlockedUntil,
			Message: blockedMessage(record.BlockedUntil.Sub(now)),
		}
	}

	// Window elapsed: restart the count.
	if now.Sub(record.FirstAttempt) >= policy.Window {
		record.Attempts = 1
		record.FirstAttempt = now
		record.LastAttempt = now
		record.BlockedUntil = nil
		s.save(ctx, record)
		return RateLimitResult{
			Allowed:   true,
			Remaining: policy.MaxAttempts - 1,
			ResetAt:   now.Add(policy.Window),
		}
	}

	record.Attempts++
	record.LastAttempt = now

	if record.Attempts > policy.MaxAttempts {
		blockedUntil := now.Add(policy.Block)
		record.BlockedUntil = &blockedUntil
		s.save(ctx, record)
		return RateLimitResult{
			Allowed: false,
			ResetAt: blockedUntil,
			Message: blockedMessage(policy.Block),
		}
	}

	s.save(ctx, record)
	return RateLimitResult{
		Allowed:   true,
		Remaining: policy.MaxAttempts - record.Attempts,
		ResetAt:   record.FirstAttempt.Add(policy.Window),
	}
}

// Reset deletes the record entirely, distinguishing "used up budget" from
// "legitimately succeeded" (e.g. a completed registration).
func (s *rateLimitService) Reset(ctx context.Context, key, endpoint string) {
	if err := s.store.Delete(ctx, key, endpoint); err != nil {
		logger.Get().Warnw("rate limit reset failed",
			"endpoint", endpoint, "error", err)
	}
}

func (s *rateLimitService) save(ctx context.Context, record *models.RateLimitRecord) {
	if err := s.store.Save(ctx, record); err != nil {
		logger.Get().Warnw("rate limit record save failed, failing open",
			"endpoint", record.Endpoint, "error", err)
	}
}

func blockedMessage(wait time.Duration) string {
	minutes := int(wait.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Too many attempts. Please try again in %d minute(s).", minutes)
}

// gormRateLimitStore keeps records in the primary database. Records older
// than the retention window are treated as absent and cleaned up lazily.
type gormRateLimitStore struct {
	db *gorm.DB
}

// NewGormRateLimitStore creates the database-backed store.
func NewGormRateLimitStore(db *gorm.DB) RateLimitStore {
	return &gormRateLimitStore{db: db}
}

func (s *gormRateLimitStore) Get(ctx context.Context, key, endpoint string) (*models.RateLimitRecord, error) {
	var record models.RateLimitRecord
	err := s.db.WithContext(ctx).
		Where("client_key = ? AND endpoint = ?", key, endpoint).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if time.Since(record.LastAttempt) >= rateLimitRetention {
		_ = s.Delete(ctx, key, endpoint)
		return nil, nil
	}
	return &record, nil
}

func (s *gormRateLimitStore) Save(ctx context.Context, record *models.RateLimitRecord) error {
	return s.db.WithContext(ctx).Save(record).Error
}

func (s *gormRateLimitStore) Delete(ctx context.Context, key, endpoint string) error {
	return s.db.WithContext(ctx).
		Where("client_key = ? AND endpoint = ?", key, endpoint).
		Delete(&models.RateLimitRecord{}).Error
}
