package model

import "time"

// ProviderStatus is the normalized subscription/payment status reported by
// the payment provider.
type ProviderStatus string

const (
	ProviderAuthorized ProviderStatus = "authorized"
	ProviderActive     ProviderStatus = "active"
	ProviderPending    ProviderStatus = "pending"
	ProviderPaused     ProviderStatus = "paused"
	ProviderCancelled  ProviderStatus = "cancelled"
)

// Known reports whether the status maps to a transition table row.
func (s ProviderStatus) Known() bool {
	switch s {
	case ProviderAuthorized, ProviderActive, ProviderPending, ProviderPaused, ProviderCancelled:
		return true
	}
	return false
}

// NotificationKind identifies a templated notification event.
type NotificationKind string

const (
	NotifyTrialReminder    NotificationKind = "trial_reminder"
	NotifyPaymentSucceeded NotificationKind = "payment_succeeded"
	NotifyPaymentFailed    NotificationKind = "payment_failed"
	NotifySuspended        NotificationKind = "suspended"
	NotifyReactivated      NotificationKind = "reactivated"
)

// Transition is the result of applying a provider status to a store: whether
// anything changed plus the notification events to dispatch. Events are
// returned, not sent, so the function stays pure and unit-testable.
type Transition struct {
	Changed bool
	Events  []NotificationKind
}

// addRenewalPeriod advances a billing anchor by one calendar month, matching
// how the provider schedules monthly recurring charges.
func addRenewalPeriod(t time.Time) time.Time { return t.AddDate(0, 1, 0) }

// ApplyProviderStatus is the single source of truth for billing-state
// policy. Both the webhook reconciler and the background sweeper feed
// provider statuses through here so fast and slow paths cannot diverge.
//
//	authorized/active -> active store, retries reset, renewal pushed one month
//	pending           -> sub state pending, nothing else
//	paused            -> retry count +1, suspend once maxRetries is reached
//	cancelled         -> cancelled + suspended
//	anything else     -> no change (caller logs)
func ApplyProviderStatus(s *Store, status ProviderStatus, maxRetries int, now time.Time) Transition {
	var tr Transition
	switch status {
	case ProviderAuthorized, ProviderActive:
		wasSuspended := s.OperationalState == StoreSuspended
		renews := addRenewalPeriod(now)
		s.SubState = SubActive
		s.OperationalState = StoreActive
		s.PaymentRetryCount = 0
		s.SubscriptionRenewsAt = &renews
		s.touch(now)
		tr.Changed = true
		if wasSuspended {
			tr.Events = append(tr.Events, NotifyReactivated)
		} else {
			tr.Events = append(tr.Events, NotifyPaymentSucceeded)
		}

	case ProviderPending:
		if s.SubState != SubPending {
			s.SubState = SubPending
			s.touch(now)
			tr.Changed = true
		}

	case ProviderPaused:
		s.SubState = SubPaused
		s.PaymentRetryCount++
		tr.Changed = true
		if s.PaymentRetryCount >= maxRetries {
			s.OperationalState = StoreSuspended
			tr.Events = append(tr.Events, NotifySuspended)
		} else {
			tr.Events = append(tr.Events, NotifyPaymentFailed)
		}
		s.touch(now)

	case ProviderCancelled:
		if s.SubState == SubCancelled && s.OperationalState == StoreSuspended {
			break // already applied, re-delivery is a no-op
		}
		s.SubState = SubCancelled
		s.OperationalState = StoreSuspended
		s.touch(now)
		tr.Changed = true
		tr.Events = append(tr.Events, NotifySuspended)
	}
	return tr
}

// ExpireSubscription marks the store expired and suspended. Used by the
// sweeper for trial and renewal expiry enforcement.
func (s *Store) ExpireSubscription(now time.Time) Transition {
	if s.SubState == SubExpired && s.OperationalState == StoreSuspended {
		return Transition{}
	}
	s.SubState = SubExpired
	s.OperationalState = StoreSuspended
	s.touch(now)
	return Transition{Changed: true, Events: []NotificationKind{NotifySuspended}}
}

// MarkPendingDeletion flags a store whose suspension grace period ran out.
// Data is never deleted automatically; an operator acts on the flag.
func (s *Store) MarkPendingDeletion(now time.Time) bool {
	if s.OperationalState != StoreSuspended {
		return false
	}
	s.OperationalState = StorePendingDeletion
	s.touch(now)
	return true
}

// BeginSubscription records a freshly created remote subscription on the
// store: trial if trialDays > 0, immediately active otherwise.
func (s *Store) BeginSubscription(planID, remoteID string, trialDays int, now time.Time) {
	s.PlanID = &planID
	s.RemoteSubscriptionID = &remoteID
	s.PaymentRetryCount = 0
	s.OperationalState = StoreActive
	if trialDays > 0 {
		trialEnd := now.Add(time.Duration(trialDays) * 24 * time.Hour)
		renews := addRenewalPeriod(trialEnd)
		s.SubState = SubTrial
		s.TrialStart = &now
		s.TrialEnd = &trialEnd
		s.SubscriptionRenewsAt = &renews
	} else {
		renews := addRenewalPeriod(now)
		s.SubState = SubActive
		s.TrialStart = nil
		s.TrialEnd = nil
		s.SubscriptionRenewsAt = &renews
	}
	s.touch(now)
}
