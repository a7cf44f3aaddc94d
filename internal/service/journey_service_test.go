package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"donor-crm/internal/api/dto"
	"donor-crm/internal/core/ports"
	"donor-crm/internal/core/postgres/repository"
	"donor-crm/internal/domain"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var enrolledAt = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type journeyFixture struct {
	db     *gorm.DB
	svc    JourneyService
	runs   ports.RunRepository
	org    domain.Organization
	caller domain.Caller
}

func newJourneyFixture(t *testing.T) *journeyFixture {
	db := testutil.NewDB(t)
	org := testutil.SeedOrganization(t, db, "Hope Trust")
	runs := repository.NewRunRepository(db)
	return &journeyFixture{
		db:   db,
		runs: runs,
		org:  org,
		svc: NewJourneyService(
			repository.NewJourneyRepository(db),
			runs,
			repository.NewContactRepository(db),
			testutil.NewClock(enrolledAt),
			logger.Nop(),
			nil,
		),
		caller: domain.Caller{UserID: "u1", Role: domain.RoleManager, OrganizationID: org.ID},
	}
}

func (f *journeyFixture) countRuns(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.JourneyRun{}).Count(&n).Error)
	return n
}

func twoStepNodes() []domain.Node {
	return []domain.Node{
		testutil.Node("n1", domain.NodeEmail, "10m", map[string]any{"subject": "Welcome"}),
		testutil.Node("n2", domain.NodeSMS, "1d", nil),
	}
}

func TestCreateJourneyStartsAsDraft(t *testing.T) {
	f := newJourneyFixture(t)

	j, err := f.svc.Create(context.Background(), f.caller, dto.CreateJourneyRequest{
		Name:  "  Welcome  ",
		Nodes: twoStepNodes(),
		Edges: []domain.Edge{{ID: "e1", From: "n1", To: "n2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JourneyDraft, j.Status)
	assert.Equal(t, "Welcome", j.Name)
	assert.Equal(t, f.org.ID, j.OrganizationID)

	got, err := f.svc.Get(context.Background(), f.caller, j.ID)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "10m", got.Nodes[0].Data["delay"])
}

func TestCreateJourneyValidation(t *testing.T) {
	f := newJourneyFixture(t)
	tests := []struct {
		name string
		req  dto.CreateJourneyRequest
	}{
		{"missing name", dto.CreateJourneyRequest{Nodes: twoStepNodes()}},
		{"duplicate node ids", dto.CreateJourneyRequest{Name: "x", Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeEmail}, {ID: "a", Type: domain.NodeSMS},
		}}},
		{"node without type", dto.CreateJourneyRequest{Name: "x", Nodes: []domain.Node{{ID: "a"}}}},
		{"dangling edge", dto.CreateJourneyRequest{Name: "x", Nodes: twoStepNodes(), Edges: []domain.Edge{{ID: "e", From: "n1", To: "n9"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.caller, tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreateJourneyForOtherOrganizationForbidden(t *testing.T) {
	f := newJourneyFixture(t)
	_, err := f.svc.Create(context.Background(), f.caller, dto.CreateJourneyRequest{OrganizationID: uuid.New(), Name: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestEnrollRequiresActiveJourney(t *testing.T) {
	f := newJourneyFixture(t)
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})
	j, err := f.svc.Create(context.Background(), f.caller, dto.CreateJourneyRequest{Name: "Welcome", Nodes: twoStepNodes()})
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{c.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrJourneyNotActive)

	_, err = f.svc.Deactivate(context.Background(), f.caller, j.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(context.Background(), f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{c.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrJourneyNotActive)

	assert.Zero(t, f.countRuns(t))
}

func TestEnrollCreatesOneRunPerUniqueContact(t *testing.T) {
	f := newJourneyFixture(t)
	ctx := context.Background()
	c1 := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})
	c2 := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})
	c3 := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})

	j, err := f.svc.Create(ctx, f.caller, dto.CreateJourneyRequest{Name: "Welcome", Nodes: twoStepNodes()})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.caller, j.ID)
	require.NoError(t, err)

	n, err := f.svc.Enroll(ctx, f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{
		c1.ID.String(), c2.ID.String(), c3.ID.String(), c1.ID.String(), " ",
		strings.ToUpper(c1.ID.String()), "{" + c2.ID.String() + "}",
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	runs, err := f.svc.GetRuns(ctx, f.caller, j.ID)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.Equal(t, domain.RunPending, r.Status)
		assert.Equal(t, "n1", r.CurrentNode())
		require.NotNil(t, r.ScheduledAt)
		assert.True(t, r.ScheduledAt.Equal(enrolledAt.Add(10*time.Minute)))
		assert.Equal(t, f.org.ID, r.OrganizationID)
		assert.Empty(t, r.History)
	}
}

func TestEnrollRejectsOtherOrganizationContacts(t *testing.T) {
	f := newJourneyFixture(t)
	ctx := context.Background()
	own := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})
	other := testutil.SeedOrganization(t, f.db, "Other")
	foreign := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: other.ID})
	j := testutil.SeedJourney(t, f.db, f.org.ID, twoStepNodes()...)

	_, err := f.svc.Enroll(ctx, f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{own.ID.String(), foreign.ID.String()}})

	var enrollErr *domain.EnrollmentError
	require.True(t, errors.As(err, &enrollErr))
	assert.Equal(t, []string{foreign.ID.String()}, enrollErr.InvalidContactIDs)
	assert.Zero(t, f.countRuns(t))

	admin := domain.Caller{UserID: "root", Role: domain.RoleSuperAdmin}
	n, err := f.svc.Enroll(ctx, admin, j.ID, dto.EnrollRequest{ContactIDs: []string{own.ID.String(), foreign.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEnrollRejectsUnknownContacts(t *testing.T) {
	f := newJourneyFixture(t)
	ctx := context.Background()
	c1 := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})
	missing := uuid.New()

	j := testutil.SeedJourney(t, f.db, f.org.ID, twoStepNodes()...)

	_, err := f.svc.Enroll(ctx, f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{
		c1.ID.String(), missing.String(), "not-a-uuid",
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var enrollErr *domain.EnrollmentError
	require.True(t, errors.As(err, &enrollErr))
	assert.ElementsMatch(t, []string{missing.String(), "not-a-uuid"}, enrollErr.InvalidContactIDs)
	assert.Zero(t, f.countRuns(t))
}

func TestEnrollOtherOrganizationForbidden(t *testing.T) {
	f := newJourneyFixture(t)
	other := testutil.SeedOrganization(t, f.db, "Other")
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: other.ID})
	j := testutil.SeedJourney(t, f.db, other.ID, twoStepNodes()...)

	_, err := f.svc.Enroll(context.Background(), f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{c.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	admin := domain.Caller{UserID: "root", Role: domain.RoleAdmin, OrganizationID: f.org.ID}
	n, err := f.svc.Enroll(context.Background(), admin, j.ID, dto.EnrollRequest{ContactIDs: []string{c.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnrollEmptyJourneyCompletesImmediately(t *testing.T) {
	f := newJourneyFixture(t)
	c := testutil.SeedContact(t, f.db, domain.Contact{OrganizationID: f.org.ID})
	j := testutil.SeedJourney(t, f.db, f.org.ID)

	n, err := f.svc.Enroll(context.Background(), f.caller, j.ID, dto.EnrollRequest{ContactIDs: []string{c.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := f.svc.GetRuns(context.Background(), f.caller, j.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunCompleted, runs[0].Status)
	assert.Nil(t, runs[0].ScheduledAt)
	assert.Nil(t, runs[0].CurrentNodeID)
}

func TestUpdateJourneyKeepsStatus(t *testing.T) {
	f := newJourneyFixture(t)
	j := testutil.SeedJourney(t, f.db, f.org.ID, twoStepNodes()...)

	name := "Renamed"
	nodes := twoStepNodes()[:1]
	got, err := f.svc.Update(context.Background(), f.caller, j.ID, dto.UpdateJourneyRequest{Name: &name, Nodes: &nodes})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, domain.JourneyActive, got.Status)

	reloaded, err := f.svc.Get(context.Background(), f.caller, j.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Nodes, 1)
}

func TestListScopesToCallerOrganization(t *testing.T) {
	f := newJourneyFixture(t)
	other := testutil.SeedOrganization(t, f.db, "Other")
	testutil.SeedJourney(t, f.db, f.org.ID)
	testutil.SeedJourney(t, f.db, other.ID)

	own, err := f.svc.List(context.Background(), f.caller, "", ports.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := f.svc.List(context.Background(), domain.Caller{Role: domain.RoleSuperAdmin}, domain.JourneyActive, ports.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetMissingJourney(t *testing.T) {
	f := newJourneyFixture(t)
	_, err := f.svc.Get(context.Background(), f.caller, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
