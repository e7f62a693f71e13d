package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
	"storefront-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// CreateSubscriptionResult is returned to the caller that initiated checkout.
type CreateSubscriptionResult struct {
	RemoteID    string
	Status      model.ProviderStatus
	RedirectURL string
}

// BillingView is the admin read model: store billing state plus the open
// ledger entry.
type BillingView struct {
	Store        *model.Store
	CurrentEntry *model.SubscriptionHistoryEntry
}

// SubscriptionUseCase drives every billing-state mutation of a store. The
// webhook reconciler and the sweeper both funnel provider statuses through
// ApplyStatus so policy lives in exactly one place.
type SubscriptionUseCase interface {
	Create(ctx context.Context, storeID, planID, payerEmail, cardToken string) (*CreateSubscriptionResult, error)
	Cancel(ctx context.Context, storeID string) error
	// ApplyStatus runs the provider status through the transition table under
	// a row lock and dispatches the resulting notification events.
	ApplyStatus(ctx context.Context, storeID string, status model.ProviderStatus) (model.Transition, error)
	// ExpireIfDue marks a store expired+suspended when its trial or renewal
	// deadline has passed; re-checks the deadline under the row lock.
	ExpireIfDue(ctx context.Context, storeID string) (model.Transition, error)
	BillingView(ctx context.Context, storeID string) (*BillingView, error)
}

type subscriptionUC struct {
	stores   repository.StoreRepository
	plans    repository.PlanRepository
	history  repository.HistoryRepository
	settings repository.SettingsRepository
	gateway  adapter.BillingGateway
	planSync PlanSyncUseCase
	notifier adapter.Notifier
	tm       repository.TransactionManager
	newID    func() string // history entry ids, injected
	now      func() time.Time
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	stores repository.StoreRepository,
	plans repository.PlanRepository,
	history repository.HistoryRepository,
	settings repository.SettingsRepository,
	gateway adapter.BillingGateway,
	planSync PlanSyncUseCase,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	newID func() string,
	logger *zerolog.Logger,
) *subscriptionUC {
	ucLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		stores:   stores,
		plans:    plans,
		history:  history,
		settings: settings,
		gateway:  gateway,
		planSync: planSync,
		notifier: notifier,
		tm:       tm,
		newID:    newID,
		now:      time.Now,
		log:      &ucLog,
	}
}

// activeSettings loads the tunables, falling back to defaults when the
// operator has not created a row yet.
func (u *subscriptionUC) activeSettings(ctx context.Context, tx repository.Tx) (*model.BillingSettings, error) {
	cfg, err := u.settings.GetActive(ctx, tx)
	if errors.Is(err, domain.ErrNotFound) {
		return model.DefaultBillingSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (u *subscriptionUC) Create(ctx context.Context, storeID, planID, payerEmail, cardToken string) (*CreateSubscriptionResult, error) {
	if storeID == "" || planID == "" || payerEmail == "" {
		return nil, domain.ErrInvalidArgument
	}

	store, err := u.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return nil, err
	}
	if store.HasOpenSubscription() {
		return nil, fmt.Errorf("store %s already has a %s subscription: %w", storeID, store.SubState, domain.ErrInvalidState)
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, domain.ErrPlanInactive
	}
	remotePlanID := ""
	if plan.IsSynced() {
		remotePlanID = *plan.RemotePlanID
	} else {
		// sync-on-demand; failure aborts before any state is touched
		remotePlanID, err = u.planSync.Sync(ctx, plan.ID)
		if err != nil {
			return nil, fmt.Errorf("plan sync: %w", err)
		}
	}

	cfg, err := u.activeSettings(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	remote, err := u.gateway.CreateSubscription(ctx, adapter.SubscriptionRequest{
		RemotePlanID:      remotePlanID,
		PayerEmail:        payerEmail,
		CardToken:         cardToken,
		ExternalReference: externalReference(store.ID),
		Reason:            plan.Name,
		AmountMinor:       plan.MonthlyPriceMinor,
		Currency:          plan.Currency,
	})
	if err != nil {
		// store state untouched; provider message goes back verbatim
		return nil, err
	}

	now := u.now()
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := u.stores.FindByIDForUpdate(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if locked.HasOpenSubscription() {
			return domain.ErrInvalidState
		}
		if _, err := u.history.CloseOpen(ctx, tx, storeID, now, model.HistoryChanged, "superseded by new subscription"); err != nil {
			return err
		}
		entry, err := model.NewHistoryEntry(u.newID(), storeID, plan.ID, u.gateway.Name(), plan.MonthlyPriceMinor, now)
		if err != nil {
			return err
		}
		if err := u.history.Create(ctx, tx, entry); err != nil {
			return err
		}
		locked.BeginSubscription(plan.ID, remote.ID, cfg.TrialDays, now)
		return u.stores.Save(ctx, tx, locked)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSubscriptionCreated()
	u.log.Info().
		Str("store_id", storeID).
		Str("plan_id", planID).
		Str("remote_id", remote.ID).
		Str("status", string(remote.Status)).
		Msg("subscription created")

	return &CreateSubscriptionResult{
		RemoteID:    remote.ID,
		Status:      remote.Status,
		RedirectURL: remote.RedirectURL,
	}, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, storeID string) error {
	store, err := u.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return err
	}
	if store.RemoteSubscriptionID == nil {
		return domain.ErrNoSubscription
	}
	if err := u.gateway.CancelSubscription(ctx, *store.RemoteSubscriptionID); err != nil {
		return err
	}
	_, err = u.ApplyStatus(ctx, storeID, model.ProviderCancelled)
	return err
}

func (u *subscriptionUC) ApplyStatus(ctx context.Context, storeID string, status model.ProviderStatus) (model.Transition, error) {
	if !status.Known() {
		u.log.Warn().Str("store_id", storeID).Str("status", string(status)).Msg("unrecognized provider status, ignoring")
		return model.Transition{}, nil
	}

	var (
		tr        model.Transition
		recipient string
		storeName string
		suspended bool
	)
	now := u.now()
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		store, err := u.stores.FindByIDForUpdate(ctx, tx, storeID)
		if err != nil {
			return err
		}
		cfg, err := u.activeSettings(ctx, tx)
		if err != nil {
			return err
		}
		wasSuspended := store.OperationalState == model.StoreSuspended
		tr = model.ApplyProviderStatus(store, status, cfg.MaxPaymentRetries, now)
		recipient, storeName = store.OwnerEmail, store.Name
		suspended = !wasSuspended && store.OperationalState == model.StoreSuspended
		if !tr.Changed {
			return nil
		}
		if status == model.ProviderCancelled {
			if _, err := u.history.CloseOpen(ctx, tx, storeID, now, model.HistoryCancelled, "cancelled at provider"); err != nil {
				return err
			}
		}
		return u.stores.Save(ctx, tx, store)
	})
	if err != nil {
		return model.Transition{}, err
	}

	if tr.Changed {
		metrics.IncTransitionApplied(string(status))
		if suspended {
			metrics.IncStoreSuspended()
		}
		u.log.Info().
			Str("store_id", storeID).
			Str("status", string(status)).
			Msg("provider status applied")
		u.dispatch(ctx, recipient, tr.Events, map[string]string{"store": storeName})
	}
	return tr, nil
}

func (u *subscriptionUC) ExpireIfDue(ctx context.Context, storeID string) (model.Transition, error) {
	var (
		tr        model.Transition
		recipient string
		storeName string
	)
	now := u.now()
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		store, err := u.stores.FindByIDForUpdate(ctx, tx, storeID)
		if err != nil {
			return err
		}
		recipient, storeName = store.OwnerEmail, store.Name
		due := false
		switch store.SubState {
		case model.SubTrial:
			due = store.TrialEnd != nil && !store.TrialEnd.After(now)
		case model.SubActive:
			due = store.SubscriptionRenewsAt != nil && !store.SubscriptionRenewsAt.After(now)
		}
		if !due {
			return nil
		}
		tr = store.ExpireSubscription(now)
		if !tr.Changed {
			return nil
		}
		if _, err := u.history.CloseOpen(ctx, tx, storeID, now, model.HistoryExpired, "expired without renewal"); err != nil {
			return err
		}
		return u.stores.Save(ctx, tx, store)
	})
	if err != nil {
		return model.Transition{}, err
	}

	if tr.Changed {
		metrics.IncStoreSuspended()
		u.log.Info().Str("store_id", storeID).Msg("subscription expired")
		u.dispatch(ctx, recipient, tr.Events, map[string]string{"store": storeName})
	}
	return tr, nil
}

func (u *subscriptionUC) BillingView(ctx context.Context, storeID string) (*BillingView, error) {
	store, err := u.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return nil, err
	}
	entry, err := u.history.FindOpenByStore(ctx, repository.NoTX, storeID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &BillingView{Store: store, CurrentEntry: entry}, nil
}

// dispatch drains the event list from a transition. Notification failure
// never affects billing state, so errors are logged and dropped.
func (u *subscriptionUC) dispatch(ctx context.Context, recipient string, events []model.NotificationKind, data map[string]string) {
	for _, ev := range events {
		if err := u.notifier.Notify(ctx, ev, recipient, data); err != nil {
			u.log.Warn().Err(err).Str("kind", string(ev)).Str("recipient", recipient).Msg("notification failed")
		}
	}
}

// externalReference embeds the store identity in provider objects so payment
// events can be routed back without trusting webhook payloads.
func externalReference(storeID string) string { return "store_" + storeID }
