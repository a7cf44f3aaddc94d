package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/core/postgres/repository"
	"donor-crm/internal/domain"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	clock    *testutil.Clock
	notifier *testutil.Notifier
	bus      *testutil.EventBus
	runs     ports.RunRepository
	worker   *Worker
}

func newFixture(t *testing.T, opts Options) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		clock:    testutil.NewClock(t0),
		notifier: &testutil.Notifier{},
		bus:      &testutil.EventBus{},
		runs:     repository.NewRunRepository(db),
	}
	f.worker = NewWorker(
		f.runs,
		repository.NewJourneyRepository(db),
		repository.NewContactRepository(db),
		f.bus,
		InitRegistry(f.notifier, time.Second),
		f.clock,
		logger.Nop(),
		nil,
		opts,
	)
	return f
}

func (f *fixture) enroll(t *testing.T, j *domain.Journey, c domain.Contact) *domain.JourneyRun {
	t.Helper()
	run := domain.NewRun(j, c.ID, f.clock.Now())
	require.NoError(t, f.runs.CreateBatch(context.Background(), []*domain.JourneyRun{run}))
	return run
}

func (f *fixture) reload(t *testing.T, run *domain.JourneyRun) *domain.JourneyRun {
	t.Helper()
	got, err := f.runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	return got
}

func TestLastNodeCompletesRun(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID, Email: "donor@example.org"})
	j := testutil.SeedJourney(t, f.db, org.ID, testutil.Node("n1", domain.NodeEmail, "0m", map[string]any{"subject": "Thanks"}))

	run := f.enroll(t, j, c)
	status, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, status)

	got := f.reload(t, run)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Nil(t, got.CurrentNodeID)
	assert.Nil(t, got.ScheduledAt)
	require.Len(t, got.History, 1)
	assert.True(t, got.History[0].Result.OK)
	assert.Equal(t, "n1", got.History[0].NodeID)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Thanks", sent[0].Subject)
}

func TestInactiveJourneyStopsRun(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID, Email: "donor@example.org"})
	j := testutil.SeedJourney(t, f.db, org.ID, testutil.Node("n1", domain.NodeEmail, "0m", nil))

	run := f.enroll(t, j, c)
	require.NoError(t, f.db.Model(&domain.Journey{}).Where("id = ?", j.ID).Update("status", domain.JourneyInactive).Error)

	status, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, status)

	got := f.reload(t, run)
	assert.Equal(t, domain.RunStopped, got.Status)
	assert.Nil(t, got.ScheduledAt)
	assert.Empty(t, got.History)
	assert.Empty(t, f.notifier.Sent())
}

func TestUnknownCurrentNodeCompletesRun(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID})
	j := testutil.SeedJourney(t, f.db, org.ID, testutil.Node("n1", domain.NodeDelay, "0m", nil))

	run := f.enroll(t, j, c)
	gone := "n-removed"
	require.NoError(t, f.db.Model(&domain.JourneyRun{}).Where("id = ?", run.ID).Update("current_node_id", gone).Error)
	run = f.reload(t, run)

	status, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, status)
	assert.Empty(t, f.reload(t, run).History)
}

func TestSendFailureAdvances(t *testing.T) {
	f := newFixture(t, Options{})
	f.notifier.Err = errors.New("smtp down")
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID, Email: "donor@example.org"})
	j := testutil.SeedJourney(t, f.db, org.ID,
		testutil.Node("n1", domain.NodeEmail, "0m", nil),
		testutil.Node("n2", domain.NodeDelay, "2h", nil),
	)

	run := f.enroll(t, j, c)
	status, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, status)

	got := f.reload(t, run)
	require.Len(t, got.History, 1)
	assert.False(t, got.History[0].Result.OK)
	assert.Equal(t, "smtp down", got.History[0].Result.Error)
	assert.Equal(t, "n2", got.CurrentNode())
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, got.ScheduledAt.Equal(t0.Add(2*time.Hour)))
}

func TestHaltPolicyMarksError(t *testing.T) {
	f := newFixture(t, Options{MaxConsecutiveFailures: 1})
	f.notifier.Err = errors.New("twilio down")
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID, Phone: "+15550001"})
	j := testutil.SeedJourney(t, f.db, org.ID,
		testutil.Node("n1", domain.NodeSMS, "0m", nil),
		testutil.Node("n2", domain.NodeSMS, "0m", nil),
	)

	run := f.enroll(t, j, c)
	status, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, domain.RunError, status)
	assert.Nil(t, f.reload(t, run).ScheduledAt)
}

func TestMissingDestinationIsSkipped(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID})
	j := testutil.SeedJourney(t, f.db, org.ID, testutil.Node("n1", domain.NodeWhatsApp, "0m", nil))

	run := f.enroll(t, j, c)
	_, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)

	got := f.reload(t, run)
	require.Len(t, got.History, 1)
	assert.True(t, got.History[0].Result.OK)
	assert.True(t, got.History[0].Result.Skipped)
	assert.Empty(t, f.notifier.Sent())
}

func TestUnsupportedNodeTypeRecordedAndAdvanced(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID})
	j := testutil.SeedJourney(t, f.db, org.ID,
		testutil.Node("n1", domain.NodeType("webhook"), "0m", nil),
		testutil.Node("n2", domain.NodeDelay, "1h", nil),
	)

	run := f.enroll(t, j, c)
	status, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, status)

	got := f.reload(t, run)
	require.Len(t, got.History, 1)
	assert.Equal(t, "unsupported node type", got.History[0].Result.Error)
	assert.Equal(t, "n2", got.CurrentNode())
}

func TestLostClaimChangesNothing(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID, Email: "a@example.org"})
	j := testutil.SeedJourney(t, f.db, org.ID, testutil.Node("n1", domain.NodeEmail, "0m", nil))

	run := f.enroll(t, j, c)
	stale := *run
	_, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)

	_, err = f.worker.ProcessRun(context.Background(), &stale)
	assert.ErrorIs(t, err, domain.ErrClaimConflict)
	assert.Len(t, f.notifier.Sent(), 1)
	assert.Len(t, f.reload(t, run).History, 1)
}

func TestProcessRunPublishesEvent(t *testing.T) {
	f := newFixture(t, Options{})
	org := testutil.SeedOrganization(t, f.db, "Org")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: org.ID})
	j := testutil.SeedJourney(t, f.db, org.ID, testutil.Node("n1", domain.NodeCondition, "0m", map[string]any{"conditionType": "opened"}))

	run := f.enroll(t, j, c)
	_, err := f.worker.ProcessRun(context.Background(), run)
	require.NoError(t, err)

	events := f.bus.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "n1", events[0].NodeID)
	assert.Equal(t, domain.RunCompleted, events[0].Status)
	assert.Equal(t, "opened", f.reload(t, run).History[0].Result.ConditionType)
}
