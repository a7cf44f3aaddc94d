package coordinator

import (
	"context"
	"testing"
	"time"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/core/postgres/repository"
	"donor-crm/internal/domain"
	"donor-crm/internal/infrastructure/redis"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/testutil"
	"donor-crm/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type heldLock struct{}

func (heldLock) TryAcquire(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, false, nil
}

type harness struct {
	db       *gorm.DB
	clock    *testutil.Clock
	notifier *testutil.Notifier
	runs     ports.RunRepository
	coord    *Coordinator
}

func newHarness(t *testing.T, lock ports.TickLock) *harness {
	db := testutil.NewDB(t)
	h := &harness{
		db:       db,
		clock:    testutil.NewClock(t0),
		notifier: &testutil.Notifier{},
		runs:     repository.NewRunRepository(db),
	}
	w := worker.NewWorker(
		h.runs,
		repository.NewJourneyRepository(db),
		repository.NewContactRepository(db),
		&testutil.EventBus{},
		worker.InitRegistry(h.notifier, time.Second),
		h.clock,
		logger.Nop(),
		nil,
		worker.Options{},
	)
	h.coord = NewCoordinator(Config{Interval: time.Hour, BatchSize: 20, ClaimTTL: time.Minute}, h.runs, w, lock, h.clock, logger.Nop(), nil)
	return h
}

func (h *harness) enroll(t *testing.T, j *domain.Journey, c domain.Contact) *domain.JourneyRun {
	t.Helper()
	run := domain.NewRun(j, c.ID, h.clock.Now())
	require.NoError(t, h.runs.CreateBatch(context.Background(), []*domain.JourneyRun{run}))
	return run
}

func (h *harness) reload(t *testing.T, id *domain.JourneyRun) *domain.JourneyRun {
	t.Helper()
	got, err := h.runs.GetByID(context.Background(), id.ID)
	require.NoError(t, err)
	return got
}

func TestEmailThenSMSScenario(t *testing.T) {
	h := newHarness(t, redis.LocalTickLock{})
	ctx := context.Background()

	org := testutil.SeedOrganization(t, h.db, "Org")
	c1 := testutil.SeedContact(t, h.db, domain.Contact{OrganizationID: org.ID, Email: "c1@example.org", Phone: "+15550001"})
	j := testutil.SeedJourney(t, h.db, org.ID,
		testutil.Node("n1", domain.NodeEmail, "0m", nil),
		testutil.Node("n2", domain.NodeSMS, "1d", nil),
	)

	run := h.enroll(t, j, c1)
	assert.Equal(t, "n1", run.CurrentNode())
	assert.True(t, run.ScheduledAt.Equal(t0))

	// first tick at T0 sends the email and waits a day for the sms
	n, err := h.coord.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := h.reload(t, run)
	assert.Equal(t, domain.RunRunning, got.Status)
	assert.Equal(t, "n2", got.CurrentNode())
	assert.True(t, got.ScheduledAt.Equal(t0.Add(24*time.Hour)))

	// before T0+1d nothing moves
	h.clock.Set(t0.Add(23 * time.Hour))
	n, err = h.coord.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, h.reload(t, run).History, 1)

	h.clock.Set(t0.Add(24 * time.Hour))
	n, err = h.coord.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got = h.reload(t, run)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Nil(t, got.CurrentNodeID)
	assert.Nil(t, got.ScheduledAt)
	require.Len(t, got.History, 2)
	assert.Equal(t, domain.NodeEmail, got.History[0].NodeType)
	assert.Equal(t, domain.NodeSMS, got.History[1].NodeType)

	sent := h.notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "email", sent[0].Channel)
	assert.Equal(t, "sms", sent[1].Channel)
}

func TestIdleTickChangesNothing(t *testing.T) {
	h := newHarness(t, redis.LocalTickLock{})
	org := testutil.SeedOrganization(t, h.db, "Org")
	c := testutil.SeedContact(t, h.db, domain.Contact{OrganizationID: org.ID, Email: "a@example.org"})
	j := testutil.SeedJourney(t, h.db, org.ID, testutil.Node("n1", domain.NodeEmail, "2h", nil))
	run := h.enroll(t, j, c)
	before := h.reload(t, run)

	for i := 0; i < 3; i++ {
		n, err := h.coord.Tick(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	after := h.reload(t, run)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Status, after.Status)
	assert.True(t, before.ScheduledAt.Equal(*after.ScheduledAt))
	assert.Empty(t, h.notifier.Sent())
}

func TestTickSkipsWhenLeaseHeld(t *testing.T) {
	h := newHarness(t, heldLock{})
	org := testutil.SeedOrganization(t, h.db, "Org")
	c := testutil.SeedContact(t, h.db, domain.Contact{OrganizationID: org.ID, Email: "a@example.org"})
	j := testutil.SeedJourney(t, h.db, org.ID, testutil.Node("n1", domain.NodeEmail, "0m", nil))
	run := h.enroll(t, j, c)

	n, err := h.coord.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.RunPending, h.reload(t, run).Status)
}

func TestStaleClaimIsRecovered(t *testing.T) {
	h := newHarness(t, redis.LocalTickLock{})
	org := testutil.SeedOrganization(t, h.db, "Org")
	c := testutil.SeedContact(t, h.db, domain.Contact{OrganizationID: org.ID, Email: "a@example.org"})
	j := testutil.SeedJourney(t, h.db, org.ID, testutil.Node("n1", domain.NodeEmail, "0m", nil))
	run := h.enroll(t, j, c)

	// a scheduler claimed the run and died
	require.NoError(t, h.runs.Claim(context.Background(), run.ID, run.Version, t0))

	n, err := h.coord.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "fresh claims are left alone")

	h.clock.Advance(2 * time.Minute)
	n, err = h.coord.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.RunCompleted, h.reload(t, run).Status)
}

func TestBatchSizeBoundsTick(t *testing.T) {
	h := newHarness(t, redis.LocalTickLock{})
	h.coord.cfg.BatchSize = 2
	org := testutil.SeedOrganization(t, h.db, "Org")
	j := testutil.SeedJourney(t, h.db, org.ID, testutil.Node("n1", domain.NodeDelay, "0m", nil))
	for i := 0; i < 3; i++ {
		c := testutil.SeedContact(t, h.db, domain.Contact{OrganizationID: org.ID})
		h.enroll(t, j, c)
	}

	n, err := h.coord.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = h.coord.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStartStopIdempotent(t *testing.T) {
	h := newHarness(t, redis.LocalTickLock{})

	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Start(context.Background()))
	assert.True(t, h.coord.Running())

	h.coord.Stop()
	h.coord.Stop()
	assert.False(t, h.coord.Running())

	require.NoError(t, h.coord.Start(context.Background()))
	h.coord.Stop()
}
