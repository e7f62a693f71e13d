package model

import "time"

// BillingSettings is the operator-editable singleton of billing tunables.
// It is read fresh on every orchestrator/sweeper invocation so edits take
// effect within one cycle.
type BillingSettings struct {
	ID                    string
	TrialDays             int
	MaxPaymentRetries     int
	SuspensionGraceDays   int
	TrialReminderLeadDays int
	UpdatedAt             time.Time
}

// DefaultBillingSettings are used when no active row exists yet.
func DefaultBillingSettings() *BillingSettings {
	return &BillingSettings{
		TrialDays:             7,
		MaxPaymentRetries:     3,
		SuspensionGraceDays:   30,
		TrialReminderLeadDays: 3,
	}
}

// TrialReminderLead returns the reminder window as a duration.
func (s *BillingSettings) TrialReminderLead() time.Duration {
	return time.Duration(s.TrialReminderLeadDays) * 24 * time.Hour
}

// SuspensionGrace returns the grace window as a duration.
func (s *BillingSettings) SuspensionGrace() time.Duration {
	return time.Duration(s.SuspensionGraceDays) * 24 * time.Hour
}
