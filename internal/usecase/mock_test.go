//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/infra/db/memory"
	"trading-academy/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock WebhookDispatcher ----

// MockDispatcher delivers synchronously to Handler and records every event.
type MockDispatcher struct {
	mu      sync.Mutex
	Handler adapter.WebhookHandler
	Events  []model.WebhookEvent
	Err     error // returned after delivery, simulating a transport failure
}

var _ adapter.WebhookDispatcher = (*MockDispatcher)(nil)

func (d *MockDispatcher) Dispatch(ctx context.Context, pi *model.PaymentIntent) error {
	evt := model.NewPaymentSucceededEvent("evt_test_"+pi.ID, pi)
	d.mu.Lock()
	d.Events = append(d.Events, evt)
	d.mu.Unlock()
	if d.Handler != nil {
		if err := d.Handler.HandleEvent(ctx, evt); err != nil {
			return err
		}
	}
	return d.Err
}

func (d *MockDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Events)
}

// ---- Deterministic random source ----

// FixedRandom returns the queued draws in order, repeating the last one.
type FixedRandom struct {
	mu    sync.Mutex
	draws []float64
}

func (f *FixedRandom) Set(draws ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = draws
}

func (f *FixedRandom) Next() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.draws) == 0 {
		return 0
	}
	v := f.draws[0]
	if len(f.draws) > 1 {
		f.draws = f.draws[1:]
	}
	return v
}

// ---- Fixture wiring every use case over the memory store ----

type fixtureOpts struct {
	successRate  float64
	dunning      usecase.DunningPolicy
	signalsPlans []string
	expireAfter  time.Duration
	// wrapCharger, when set, decorates the charger handed to the subscription use case.
	wrapCharger func(usecase.Charger) usecase.Charger
}

type fixture struct {
	store *memory.Store
	tm    *memory.TxManager

	intents       *memory.PaymentIntentRepo
	users         *memory.UserRepo
	subs          *memory.SubscriptionRepo
	orders        *memory.OrderRepo
	mentorships   *memory.MentorshipRepo
	enrollments   *memory.EnrollmentRepo
	registrations *memory.RegistrationRepo
	resources     *memory.ResourceRepo
	purchases     *memory.PurchaseRepo
	signals       *memory.SignalRepo
	locker        *memory.Locker

	random     *FixedRandom
	dispatcher *MockDispatcher
	now        time.Time

	payments     usecase.PaymentIntentUseCase
	subscription usecase.SubscriptionUseCase
	router       adapter.WebhookHandler
	entitlements usecase.EntitlementUseCase
	content      usecase.ContentUseCase
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	if opts.successRate == 0 {
		opts.successRate = 0.85
	}
	if len(opts.signalsPlans) == 0 {
		opts.signalsPlans = []string{"MONTHLY"}
	}
	if opts.expireAfter == 0 {
		opts.expireAfter = 72 * time.Hour
	}
	log := newTestLogger()
	store := memory.NewStore()
	f := &fixture{
		store:         store,
		tm:            memory.NewTxManager(store),
		intents:       memory.NewPaymentIntentRepo(store),
		users:         memory.NewUserRepo(store),
		subs:          memory.NewSubscriptionRepo(store),
		orders:        memory.NewOrderRepo(store),
		mentorships:   memory.NewMentorshipRepo(store),
		enrollments:   memory.NewEnrollmentRepo(store),
		registrations: memory.NewRegistrationRepo(store),
		resources:     memory.NewResourceRepo(store),
		purchases:     memory.NewPurchaseRepo(store),
		signals:       memory.NewSignalRepo(store),
		locker:        memory.NewLocker(),
		random:        &FixedRandom{},
		dispatcher:    &MockDispatcher{},
		now:           time.Now().UTC(),
	}

	policy := usecase.NewOutcomePolicy(opts.successRate, "http://localhost/3ds", f.random.Next)
	payments := usecase.NewPaymentIntentUseCase(f.intents, policy, nil, f.locker, time.Minute, "usd", log)

	var charger usecase.Charger = payments
	if opts.wrapCharger != nil {
		charger = opts.wrapCharger(payments)
	}
	subsUC := usecase.NewSubscriptionUseCase(
		f.subs, f.orders, charger, f.tm,
		usecase.PlanPrices{Currency: "usd", Monthly: 4900, Yearly: 49000},
		opts.dunning, opts.expireAfter, log,
	)
	subsUC.SetClock(func() time.Time { return f.now })

	router := usecase.NewWebhookUseCase(usecase.WebhookRepos{
		Purchases:     f.purchases,
		Registrations: f.registrations,
		Enrollments:   f.enrollments,
		Mentorships:   f.mentorships,
	}, subsUC, f.tm, memory.NewIdempotencyStore(), time.Hour, log)

	f.dispatcher.Handler = router
	payments.SetDispatcher(f.dispatcher)

	ent := usecase.NewEntitlementUseCase(f.users, f.mentorships, f.subs, opts.signalsPlans, opts.dunning.Enabled, log)
	ent.SetClock(func() time.Time { return f.now })

	f.payments = payments
	f.subscription = subsUC
	f.router = router
	f.entitlements = ent
	f.content = usecase.NewContentUseCase(usecase.ContentRepos{
		Resources:     f.resources,
		Purchases:     f.purchases,
		Signals:       f.signals,
		Registrations: f.registrations,
	}, ent, payments, f.tm, log)
	return f
}

func (f *fixture) addUser(t *testing.T, id string, role model.Role) *model.User {
	t.Helper()
	u, err := model.NewUser(id, id+"@example.com", id, role)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := f.users.Save(context.Background(), nil, u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u
}

func (f *fixture) addSubscription(t *testing.T, id, userID string, plan model.SubscriptionPlan, start time.Time) *model.Subscription {
	t.Helper()
	s, err := model.NewSubscription(id, userID, plan, start)
	if err != nil {
		t.Fatalf("new subscription: %v", err)
	}
	if err := f.subs.Save(context.Background(), nil, s); err != nil {
		t.Fatalf("save subscription: %v", err)
	}
	return s
}

func (f *fixture) addCompletedMentorship(t *testing.T, id, userID string) {
	t.Helper()
	done := f.now
	m := &model.MentorshipPayment{ID: id, UserID: userID, Amount: 99000, Currency: "usd", Status: model.MentorshipCompleted, CreatedAt: done, CompletedAt: &done}
	if err := f.mentorships.Save(context.Background(), nil, m); err != nil {
		t.Fatalf("save mentorship: %v", err)
	}
}

func successCard() *usecase.CardInput {
	return &usecase.CardInput{Number: usecase.CardAlwaysSucceeds, ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}

// interleavingCharger calls during after a successful off-session charge and before returning it.
type interleavingCharger struct {
	usecase.Charger
	during func(ctx context.Context)
}

func (c *interleavingCharger) ChargeOffSession(ctx context.Context, amount int64, currency string, md map[string]string) (*model.PaymentIntent, error) {
	pi, err := c.Charger.ChargeOffSession(ctx, amount, currency, md)
	if err == nil && c.during != nil {
		c.during(ctx)
	}
	return pi, err
}
