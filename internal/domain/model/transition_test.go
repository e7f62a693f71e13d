//go:build !integration

package model

import (
	"testing"
	"time"
)

func activeStore(now time.Time) *Store {
	planID := "plan-growth"
	remoteID := "mp-123"
	renews := now.Add(10 * 24 * time.Hour)
	return &Store{
		ID:                   "store-1",
		Name:                 "Cactus & Co",
		OwnerEmail:           "owner@example.com",
		OperationalState:     StoreActive,
		SubState:             SubActive,
		PlanID:               &planID,
		RemoteSubscriptionID: &remoteID,
		SubscriptionRenewsAt: &renews,
		LastStateChangeAt:    now.Add(-time.Hour),
		CreatedAt:            now.Add(-30 * 24 * time.Hour),
	}
}

// checkInvariant verifies that a suspended store always carries a terminal or
// retries-exhausted sub state.
func checkInvariant(t *testing.T, s *Store, maxRetries int) {
	t.Helper()
	if s.OperationalState != StoreSuspended {
		return
	}
	switch s.SubState {
	case SubCancelled, SubExpired:
	case SubPaused:
		if s.PaymentRetryCount < maxRetries {
			t.Errorf("suspended with paused sub state but only %d retries (max %d)", s.PaymentRetryCount, maxRetries)
		}
	default:
		t.Errorf("suspended store with sub state %q", s.SubState)
	}
}

func TestApplyProviderStatus(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	const maxRetries = 3

	t.Run("authorized activates and schedules renewal one month out", func(t *testing.T) {
		s := activeStore(now)
		s.SubState = SubPending

		tr := ApplyProviderStatus(s, ProviderAuthorized, maxRetries, now)

		if !tr.Changed {
			t.Fatal("expected a state change")
		}
		if s.SubState != SubActive || s.OperationalState != StoreActive {
			t.Errorf("got sub=%s op=%s", s.SubState, s.OperationalState)
		}
		want := now.AddDate(0, 1, 0)
		if s.SubscriptionRenewsAt == nil || !s.SubscriptionRenewsAt.Equal(want) {
			t.Errorf("renews_at = %v, want %v", s.SubscriptionRenewsAt, want)
		}
		if len(tr.Events) != 1 || tr.Events[0] != NotifyPaymentSucceeded {
			t.Errorf("events = %v, want [payment_succeeded]", tr.Events)
		}
		checkInvariant(t, s, maxRetries)
	})

	t.Run("payment after suspension reactivates and resets retries", func(t *testing.T) {
		s := activeStore(now)
		s.OperationalState = StoreSuspended
		s.SubState = SubPaused
		s.PaymentRetryCount = maxRetries

		tr := ApplyProviderStatus(s, ProviderActive, maxRetries, now)

		if !tr.Changed {
			t.Fatal("expected a state change")
		}
		if s.OperationalState != StoreActive || s.SubState != SubActive {
			t.Errorf("got sub=%s op=%s", s.SubState, s.OperationalState)
		}
		if s.PaymentRetryCount != 0 {
			t.Errorf("retry count = %d, want 0", s.PaymentRetryCount)
		}
		if len(tr.Events) != 1 || tr.Events[0] != NotifyReactivated {
			t.Errorf("events = %v, want [reactivated]", tr.Events)
		}
	})

	t.Run("pending only flips the sub state", func(t *testing.T) {
		s := activeStore(now)
		before := *s

		tr := ApplyProviderStatus(s, ProviderPending, maxRetries, now)

		if !tr.Changed {
			t.Fatal("expected a state change")
		}
		if s.SubState != SubPending {
			t.Errorf("sub state = %s, want pending", s.SubState)
		}
		if s.OperationalState != before.OperationalState {
			t.Errorf("operational state changed to %s", s.OperationalState)
		}
		if len(tr.Events) != 0 {
			t.Errorf("events = %v, want none", tr.Events)
		}
	})

	t.Run("pending is idempotent", func(t *testing.T) {
		s := activeStore(now)
		s.SubState = SubPending

		tr := ApplyProviderStatus(s, ProviderPending, maxRetries, now)
		if tr.Changed {
			t.Error("expected no change on repeated pending")
		}
	})

	t.Run("paused increments retries without suspending below the limit", func(t *testing.T) {
		s := activeStore(now)

		tr := ApplyProviderStatus(s, ProviderPaused, maxRetries, now)

		if s.PaymentRetryCount != 1 {
			t.Errorf("retry count = %d, want 1", s.PaymentRetryCount)
		}
		if s.OperationalState != StoreActive {
			t.Errorf("operational state = %s, want active", s.OperationalState)
		}
		if len(tr.Events) != 1 || tr.Events[0] != NotifyPaymentFailed {
			t.Errorf("events = %v, want [payment_failed]", tr.Events)
		}
	})

	t.Run("paused suspends once retries are exhausted", func(t *testing.T) {
		s := activeStore(now)
		s.SubState = SubPaused
		s.PaymentRetryCount = maxRetries - 1

		tr := ApplyProviderStatus(s, ProviderPaused, maxRetries, now)

		if s.OperationalState != StoreSuspended {
			t.Errorf("operational state = %s, want suspended", s.OperationalState)
		}
		if len(tr.Events) != 1 || tr.Events[0] != NotifySuspended {
			t.Errorf("events = %v, want [suspended]", tr.Events)
		}
		checkInvariant(t, s, maxRetries)
	})

	t.Run("cancelled suspends immediately", func(t *testing.T) {
		s := activeStore(now)

		tr := ApplyProviderStatus(s, ProviderCancelled, maxRetries, now)

		if s.SubState != SubCancelled || s.OperationalState != StoreSuspended {
			t.Errorf("got sub=%s op=%s", s.SubState, s.OperationalState)
		}
		if len(tr.Events) != 1 || tr.Events[0] != NotifySuspended {
			t.Errorf("events = %v, want [suspended]", tr.Events)
		}
		checkInvariant(t, s, maxRetries)
	})

	t.Run("cancelled re-delivery is a no-op", func(t *testing.T) {
		s := activeStore(now)
		ApplyProviderStatus(s, ProviderCancelled, maxRetries, now)
		stamp := s.LastStateChangeAt

		tr := ApplyProviderStatus(s, ProviderCancelled, maxRetries, now.Add(time.Minute))

		if tr.Changed {
			t.Error("expected no change on repeated cancel")
		}
		if !s.LastStateChangeAt.Equal(stamp) {
			t.Error("last state change moved on a no-op")
		}
	})

	t.Run("unrecognized status changes nothing", func(t *testing.T) {
		s := activeStore(now)
		before := *s

		tr := ApplyProviderStatus(s, ProviderStatus("weird_new_status"), maxRetries, now)

		if tr.Changed || len(tr.Events) != 0 {
			t.Errorf("unexpected transition %+v", tr)
		}
		if s.SubState != before.SubState || s.OperationalState != before.OperationalState {
			t.Error("state mutated on unrecognized status")
		}
	})
}

func TestExpireSubscription(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("expires and suspends", func(t *testing.T) {
		s := activeStore(now)

		tr := s.ExpireSubscription(now)

		if !tr.Changed {
			t.Fatal("expected a state change")
		}
		if s.SubState != SubExpired || s.OperationalState != StoreSuspended {
			t.Errorf("got sub=%s op=%s", s.SubState, s.OperationalState)
		}
		if len(tr.Events) != 1 || tr.Events[0] != NotifySuspended {
			t.Errorf("events = %v, want [suspended]", tr.Events)
		}
	})

	t.Run("second expiry is a no-op", func(t *testing.T) {
		s := activeStore(now)
		s.ExpireSubscription(now)

		tr := s.ExpireSubscription(now.Add(time.Hour))
		if tr.Changed {
			t.Error("expected no change on repeated expiry")
		}
	})
}

func TestMarkPendingDeletion(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("flags a suspended store", func(t *testing.T) {
		s := activeStore(now)
		s.OperationalState = StoreSuspended
		s.SubState = SubExpired

		if !s.MarkPendingDeletion(now) {
			t.Fatal("expected the store to be flagged")
		}
		if s.OperationalState != StorePendingDeletion {
			t.Errorf("operational state = %s", s.OperationalState)
		}
	})

	t.Run("refuses a store that is not suspended", func(t *testing.T) {
		s := activeStore(now)
		if s.MarkPendingDeletion(now) {
			t.Error("active store must not be flagged for deletion")
		}
	})
}

func TestBeginSubscription(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("with trial days starts a trial", func(t *testing.T) {
		s, err := NewStore("store-1", "Cactus & Co", "owner@example.com")
		if err != nil {
			t.Fatal(err)
		}

		s.BeginSubscription("plan-growth", "mp-123", 7, now)

		if s.SubState != SubTrial || s.OperationalState != StoreActive {
			t.Errorf("got sub=%s op=%s", s.SubState, s.OperationalState)
		}
		wantEnd := now.Add(7 * 24 * time.Hour)
		if s.TrialEnd == nil || !s.TrialEnd.Equal(wantEnd) {
			t.Errorf("trial end = %v, want %v", s.TrialEnd, wantEnd)
		}
		wantRenews := wantEnd.AddDate(0, 1, 0)
		if s.SubscriptionRenewsAt == nil || !s.SubscriptionRenewsAt.Equal(wantRenews) {
			t.Errorf("renews_at = %v, want %v", s.SubscriptionRenewsAt, wantRenews)
		}
	})

	t.Run("without trial days starts active", func(t *testing.T) {
		s, err := NewStore("store-1", "Cactus & Co", "owner@example.com")
		if err != nil {
			t.Fatal(err)
		}

		s.BeginSubscription("plan-growth", "mp-123", 0, now)

		if s.SubState != SubActive {
			t.Errorf("sub state = %s, want active", s.SubState)
		}
		if s.TrialEnd != nil {
			t.Error("expected no trial end")
		}
		if !s.HasOpenSubscription() {
			t.Error("expected an open subscription")
		}
	})
}
