package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"likha/internal/models"
	"likha/internal/testutil"
)

func newTestRateLimitService(t *testing.T) (*rateLimitService, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := &rateLimitService{
		store:    NewGormRateLimitStore(db),
		policies: DefaultRateLimitPolicies,
		now:      time.Now,
	}
	return svc, func() { testutil.TeardownTestDB(t, db) }
}

func TestRateLimitCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("allows_under_budget", func(t *testing.T) {
		svc, teardown := newTestRateLimitService(t)
		defer teardown()

		for i := 0; i < 3; i++ {
			result := svc.Check(ctx, "10.1.0.1", "register")
			if !result.Allowed {
				t.Fatalf("attempt %d unexpectedly rejected: %s", i+1, result.Message)
			}
		}
	})

	t.Run("rejects_over_budget", func(t *testing.T) {
		svc, teardown := newTestRateLimitService(t)
		defer teardown()

		for i := 0; i < 3; i++ {
			result := svc.Check(ctx, "10.1.0.2", "register")
			if !result.Allowed {
				t.Fatalf("attempt %d unexpectedly rejected", i+1)
			}
		}

		result := svc.Check(ctx, "10.1.0.2", "register")
		if result.Allowed {
			t.Fatal("expected 4th register attempt to be rejected")
		}
		if result.Message == "" {
			t.Error("expected a retry message on rejection")
		}
	})

	t.Run("remaining_counts_down", func(t *testing.T) {
		svc, teardown := newTestRateLimitService(t)
		defer teardown()

		first := svc.Check(ctx, "10.1.0.3", "login")
		if first.Remaining != 4 {
			t.Errorf("expected 4 remaining after first attempt, got %d", first.Remaining)
		}
		second := svc.Check(ctx, "10.1.0.3", "login")
		if second.Remaining != 3 {
			t.Errorf("expected 3 remaining after second attempt, got %d", second.Remaining)
		}
	})

	t.Run("block_persists_until_expiry", func(t *testing.T) {
		svc, teardown := newTestRateLimitService(t)
		defer teardown()

		base := time.Now()
		svc.now = func() time.Time { return base }

		for i := 0; i < 4; i++ {
			svc.Check(ctx, "10.1.0.4", "register")
		}

		// Mid-block: still rejected.
		svc.now = func() time.Time { return base.Add(30 * time.Minute) }
		if result := svc.Check(ctx, "10.1.0.4", "register"); result.Allowed {
			t.Fatal("expected rejection while block is active")
		}

		// Past the block and the window: budget restarts.
		svc.now = func() time.Time { return base.Add(2 * time.Hour) }
		result := svc.Check(ctx, "10.1.0.4", "register")
		if !result.Allowed {
			t.Fatalf("expected allowance after block expiry: %s", result.Message)
		}
		if result.Remaining != 2 {
			t.Errorf("expected fresh budget of 2 remaining, got %d", result.Remaining)
		}
	})

	t.Run("window_elapse_restarts_count", func(t *testing.T) {
		svc, teardown := newTestRateLimitService(t)
		defer teardown()

		base := time.Now()
		svc.now = func() time.Time { return base }

		svc.Check(ctx, "10.1.0.5", "login")
		svc.Check(ctx, "10.1.0.5", "login")

		svc.now = func() time.Time { return base.Add(16 * time.Minute) }
		result := svc.Check(ctx, "10.1.0.5", "login")
		if !result.Allowed {
			t.Fatal("expected allowance after window elapsed")
		}
		if result.Remaining != 4 {
			t.Errorf("expected restarted budget of 4 remaining, got %d", result.Remaining)
		}
	})

	t.Run("unknown_endpoint_unthrottled", func(t *testing.T) {
		svc, teardown := newTestRateLimitService(t)
		defer teardown()

		for i := 0; i < 50; i++ {
			if result := svc.Check(ctx, "10.1.0.6", "catalog"); !result.Allowed {
				t.Fatal("unthrottled endpoint should never reject")
			}
		}
	})

	t.Run("fails_open_on_store_error", func(t *testing.T) {
		svc := &rateLimitService{
			store:    failingStore{},
			policies: DefaultRateLimitPolicies,
			now:      time.Now,
		}

		result := svc.Check(ctx, "10.1.0.7", "login")
		if !result.Allowed {
			t.Fatal("expected fail-open allowance when the store is unreachable")
		}
	})
}

func TestRateLimitReset(t *testing.T) {
	ctx := context.Background()
	svc, teardown := newTestRateLimitService(t)
	defer teardown()

	for i := 0; i < 3; i++ {
		svc.Check(ctx, "10.1.0.8", "register")
	}
	svc.Reset(ctx, "10.1.0.8", "register")

	result := svc.Check(ctx, "10.1.0.8", "register")
	if !result.Allowed {
		t.Fatal("expected allowance after reset")
	}
	if result.Remaining != 2 {
		t.Errorf("expected full budget minus one after reset, got %d remaining", result.Remaining)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) (*models.RateLimitRecord, error) {
	return nil, errors.New("store down")
}

func (failingStore) Save(context.Context, *models.RateLimitRecord) error {
	return errors.New("store down")
}

func (failingStore) Delete(context.Context, string, string) error {
	return errors.New("store down")
}
