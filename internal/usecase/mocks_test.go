//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
	"storefront-billing/internal/usecase"
)

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock StoreRepository ----

// MockStoreRepo keeps stores in a map and lets tests override any method via
// its func fields.
type MockStoreRepo struct {
	mu     sync.Mutex
	stores map[string]*model.Store

	SaveFunc            func(ctx context.Context, tx repository.Tx, s *model.Store) error
	FindByIDFunc        func(ctx context.Context, tx repository.Tx, id string) (*model.Store, error)
	FindForUpdateFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.Store, error)
	FindByRemoteSubFunc func(ctx context.Context, tx repository.Tx, remoteID string) (*model.Store, error)
}

var _ repository.StoreRepository = (*MockStoreRepo)(nil)

func NewMockStoreRepo() *MockStoreRepo {
	return &MockStoreRepo{stores: make(map[string]*model.Store)}
}

func (m *MockStoreRepo) Put(s *model.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.stores[s.ID] = &cp
}

func (m *MockStoreRepo) Get(id string) *model.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (m *MockStoreRepo) Save(ctx context.Context, tx repository.Tx, s *model.Store) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.Put(s)
	return nil
}

func (m *MockStoreRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Store, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	if s := m.Get(id); s != nil {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockStoreRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Store, error) {
	if m.FindForUpdateFunc != nil {
		return m.FindForUpdateFunc(ctx, tx, id)
	}
	return m.FindByID(ctx, tx, id)
}

func (m *MockStoreRepo) FindByRemoteSubscriptionID(ctx context.Context, tx repository.Tx, remoteID string) (*model.Store, error) {
	if m.FindByRemoteSubFunc != nil {
		return m.FindByRemoteSubFunc(ctx, tx, remoteID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stores {
		if s.RemoteSubscriptionID != nil && *s.RemoteSubscriptionID == remoteID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockStoreRepo) ListTrialEndingWithin(ctx context.Context, tx repository.Tx, now time.Time, lead time.Duration) ([]*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Store
	until := now.Add(lead)
	for _, s := range m.stores {
		if s.SubState == model.SubTrial && s.TrialEnd != nil && s.TrialEnd.After(now) && !s.TrialEnd.After(until) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStoreRepo) ListTrialExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Store
	for _, s := range m.stores {
		if s.SubState == model.SubTrial && s.TrialEnd != nil && !s.TrialEnd.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStoreRepo) ListRenewalExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Store
	for _, s := range m.stores {
		if s.SubState == model.SubActive && s.SubscriptionRenewsAt != nil && !s.SubscriptionRenewsAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStoreRepo) ListSuspendedSince(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Store
	for _, s := range m.stores {
		if s.OperationalState == model.StoreSuspended && !s.LastStateChangeAt.After(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.Plan

	SetRemoteFunc func(ctx context.Context, tx repository.Tx, planID, remotePlanID string, syncedAt time.Time) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: make(map[string]*model.Plan)}
}

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockPlanRepo) SetRemote(ctx context.Context, tx repository.Tx, planID, remotePlanID string, syncedAt time.Time) error {
	if m.SetRemoteFunc != nil {
		return m.SetRemoteFunc(ctx, tx, planID, remotePlanID, syncedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planID]
	if !ok {
		return domain.ErrNotFound
	}
	p.RemotePlanID = &remotePlanID
	p.RemoteSyncedAt = &syncedAt
	return nil
}

// ---- Mock HistoryRepository ----

type MockHistoryRepo struct {
	mu      sync.Mutex
	Entries []*model.SubscriptionHistoryEntry

	CreateFunc    func(ctx context.Context, tx repository.Tx, e *model.SubscriptionHistoryEntry) error
	CloseOpenFunc func(ctx context.Context, tx repository.Tx, storeID string, endAt time.Time, outcome model.HistoryOutcome, notes string) (bool, error)
}

var _ repository.HistoryRepository = (*MockHistoryRepo)(nil)

func NewMockHistoryRepo() *MockHistoryRepo {
	return &MockHistoryRepo{}
}

func (m *MockHistoryRepo) Create(ctx context.Context, tx repository.Tx, e *model.SubscriptionHistoryEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.Entries {
		if ex.StoreID == e.StoreID && ex.EndAt == nil {
			return domain.ErrAlreadyExists
		}
	}
	cp := *e
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockHistoryRepo) CloseOpen(ctx context.Context, tx repository.Tx, storeID string, endAt time.Time, outcome model.HistoryOutcome, notes string) (bool, error) {
	if m.CloseOpenFunc != nil {
		return m.CloseOpenFunc(ctx, tx, storeID, endAt, outcome, notes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	closed := false
	for _, e := range m.Entries {
		if e.StoreID == storeID && e.EndAt == nil {
			end := endAt
			e.EndAt = &end
			e.Outcome = outcome
			if notes != "" {
				e.Notes = notes
			}
			closed = true
		}
	}
	return closed, nil
}

func (m *MockHistoryRepo) FindOpenByStore(ctx context.Context, tx repository.Tx, storeID string) (*model.SubscriptionHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.StoreID == storeID && e.EndAt == nil {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockHistoryRepo) ListByStore(ctx context.Context, tx repository.Tx, storeID string, limit int) ([]*model.SubscriptionHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubscriptionHistoryEntry
	for _, e := range m.Entries {
		if e.StoreID == storeID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock SettingsRepository ----

type MockSettingsRepo struct {
	mu       sync.Mutex
	Settings *model.BillingSettings // nil means "no row yet"
}

var _ repository.SettingsRepository = (*MockSettingsRepo)(nil)

func NewMockSettingsRepo() *MockSettingsRepo {
	return &MockSettingsRepo{}
}

func (m *MockSettingsRepo) GetActive(ctx context.Context, tx repository.Tx) (*model.BillingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Settings == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.Settings
	return &cp, nil
}

func (m *MockSettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.BillingSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Settings = &cp
	return nil
}

// ---- Mock BillingGateway ----

type MockGateway struct {
	mu  sync.Mutex
	seq int

	CreatePlanFunc         func(ctx context.Context, spec adapter.PlanSpec) (adapter.RemotePlan, error)
	UpdatePlanFunc         func(ctx context.Context, remotePlanID string, spec adapter.PlanSpec) (adapter.RemotePlan, error)
	CreateSubscriptionFunc func(ctx context.Context, req adapter.SubscriptionRequest) (adapter.RemoteSubscription, error)
	GetSubscriptionFunc    func(ctx context.Context, remoteID string) (adapter.RemoteSubscription, error)
	CancelFunc             func(ctx context.Context, remoteID string) error
	GetPaymentFunc         func(ctx context.Context, paymentID string) (adapter.RemotePayment, error)

	CreatedSubs []adapter.SubscriptionRequest
	Cancelled   []string
}

var _ adapter.BillingGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreatePlan(ctx context.Context, spec adapter.PlanSpec) (adapter.RemotePlan, error) {
	if m.CreatePlanFunc != nil {
		return m.CreatePlanFunc(ctx, spec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return adapter.RemotePlan{ID: fmt.Sprintf("remote-plan-%d", m.seq), Status: "active"}, nil
}

func (m *MockGateway) UpdatePlan(ctx context.Context, remotePlanID string, spec adapter.PlanSpec) (adapter.RemotePlan, error) {
	if m.UpdatePlanFunc != nil {
		return m.UpdatePlanFunc(ctx, remotePlanID, spec)
	}
	return adapter.RemotePlan{ID: remotePlanID, Status: "active"}, nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, req adapter.SubscriptionRequest) (adapter.RemoteSubscription, error) {
	m.mu.Lock()
	m.CreatedSubs = append(m.CreatedSubs, req)
	m.mu.Unlock()
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, req)
	}
	return adapter.RemoteSubscription{
		ID:                "mp-sub-1",
		Status:            model.ProviderAuthorized,
		ExternalReference: req.ExternalReference,
		RedirectURL:       "https://example.test/checkout/mp-sub-1",
	}, nil
}

func (m *MockGateway) GetSubscription(ctx context.Context, remoteID string) (adapter.RemoteSubscription, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, remoteID)
	}
	return adapter.RemoteSubscription{ID: remoteID, Status: model.ProviderActive}, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, remoteID string) error {
	m.mu.Lock()
	m.Cancelled = append(m.Cancelled, remoteID)
	m.mu.Unlock()
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, remoteID)
	}
	return nil
}

func (m *MockGateway) GetPayment(ctx context.Context, paymentID string) (adapter.RemotePayment, error) {
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, paymentID)
	}
	return adapter.RemotePayment{}, domain.ErrNotFound
}

// ---- Mock Notifier ----

type SentNotification struct {
	Kind model.NotificationKind
	To   string
	Data map[string]string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification

	NotifyFunc func(ctx context.Context, kind model.NotificationKind, recipient string, data map[string]string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, kind model.NotificationKind, recipient string, data map[string]string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, kind, recipient, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentNotification{Kind: kind, To: recipient, Data: data})
	return nil
}

func (m *MockNotifier) Kinds() []model.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(m.Sent))
	for _, s := range m.Sent {
		out = append(out, s.Kind)
	}
	return out
}

// ---- Mock PlanSyncUseCase ----

type MockPlanSync struct {
	SyncFunc    func(ctx context.Context, planID string) (string, error)
	SyncAllFunc func(ctx context.Context) (int, error)
}

var _ usecase.PlanSyncUseCase = (*MockPlanSync)(nil)

func (m *MockPlanSync) Sync(ctx context.Context, planID string) (string, error) {
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, planID)
	}
	return "remote-" + planID, nil
}

func (m *MockPlanSync) SyncAll(ctx context.Context) (int, error) {
	if m.SyncAllFunc != nil {
		return m.SyncAllFunc(ctx)
	}
	return 0, nil
}

// ---- Mock EventDeduper ----

type MockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	Err  error // simulate the dedup store being down
}

var _ usecase.EventDeduper = (*MockDeduper)(nil)

func NewMockDeduper() *MockDeduper {
	return &MockDeduper{seen: make(map[string]bool)}
}

func (m *MockDeduper) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

// ---- Mock SubscriptionUseCase ----

// MockSubscriptionUC stands in for the orchestrator in webhook and sweep
// tests that only care about which statuses get applied.
type MockSubscriptionUC struct {
	mu            sync.Mutex
	AppliedStatus []model.ProviderStatus
	ExpiredStores []string

	CreateFunc      func(ctx context.Context, storeID, planID, payerEmail, cardToken string) (*usecase.CreateSubscriptionResult, error)
	CancelFunc      func(ctx context.Context, storeID string) error
	ApplyStatusFunc func(ctx context.Context, storeID string, status model.ProviderStatus) (model.Transition, error)
	ExpireIfDueFunc func(ctx context.Context, storeID string) (model.Transition, error)
	BillingViewFunc func(ctx context.Context, storeID string) (*usecase.BillingView, error)
}

var _ usecase.SubscriptionUseCase = (*MockSubscriptionUC)(nil)

func NewMockSubscriptionUC() *MockSubscriptionUC {
	return &MockSubscriptionUC{}
}

func (m *MockSubscriptionUC) Create(ctx context.Context, storeID, planID, payerEmail, cardToken string) (*usecase.CreateSubscriptionResult, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, storeID, planID, payerEmail, cardToken)
	}
	return &usecase.CreateSubscriptionResult{RemoteID: "mp-sub-1", Status: model.ProviderAuthorized}, nil
}

func (m *MockSubscriptionUC) Cancel(ctx context.Context, storeID string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, storeID)
	}
	return nil
}

func (m *MockSubscriptionUC) ApplyStatus(ctx context.Context, storeID string, status model.ProviderStatus) (model.Transition, error) {
	m.mu.Lock()
	m.AppliedStatus = append(m.AppliedStatus, status)
	m.mu.Unlock()
	if m.ApplyStatusFunc != nil {
		return m.ApplyStatusFunc(ctx, storeID, status)
	}
	return model.Transition{Changed: true}, nil
}

func (m *MockSubscriptionUC) ExpireIfDue(ctx context.Context, storeID string) (model.Transition, error) {
	m.mu.Lock()
	m.ExpiredStores = append(m.ExpiredStores, storeID)
	m.mu.Unlock()
	if m.ExpireIfDueFunc != nil {
		return m.ExpireIfDueFunc(ctx, storeID)
	}
	return model.Transition{Changed: true}, nil
}

func (m *MockSubscriptionUC) BillingView(ctx context.Context, storeID string) (*usecase.BillingView, error) {
	if m.BillingViewFunc != nil {
		return m.BillingViewFunc(ctx, storeID)
	}
	return nil, domain.ErrNotFound
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately with NoTX unless a test overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
