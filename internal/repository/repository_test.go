package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 20},
		{-3, 10, 1, 10},
		{2, 500, 2, repository.MaxPageSize},
		{5, 50, 5, 50},
	}
	for _, tt := range tests {
		page, size := repository.NormalizePage(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
}

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"createdAt": "created_at", "totalPrice": "total_price"}

	assert.Equal(t, "total_price ASC", repository.BuildOrderClause(repository.SortConfig{Field: "totalPrice", Order: repository.SortOrderAsc}, fields, "created_at"))
	assert.Equal(t, "created_at ASC", repository.BuildOrderClause(repository.SortConfig{Field: "id; DROP TABLE sales", Order: repository.ParseSortOrder("ASC")}, fields, "created_at"))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder("sideways"))
}

func TestUnitRepository_CompareAndSwapStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewUnitRepository(db)
	project := testutil.CreateProject(t, db)
	unit := testutil.CreateUnit(t, db, project.ID, domain.UnitStatusAvailable)

	require.NoError(t, repo.CompareAndSwapStatus(ctx, nil, unit.ID, domain.UnitStatusAvailable, domain.UnitStatusReserved))

	reloaded, err := repo.GetByID(ctx, nil, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitStatusReserved, reloaded.Status)

	// A second writer still expecting "available" loses
	err = repo.CompareAndSwapStatus(ctx, nil, unit.ID, domain.UnitStatusAvailable, domain.UnitStatusReserved)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	err = repo.CompareAndSwapStatus(ctx, nil, uuid.New(), domain.UnitStatusAvailable, domain.UnitStatusReserved)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUnitRepository_CompareAndSwapRollsBackWithTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewUnitRepository(db)
	unit := testutil.CreateUnit(t, db, testutil.CreateProject(t, db).ID, domain.UnitStatusReserved)

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, repo.CompareAndSwapStatus(ctx, tx, unit.ID, domain.UnitStatusReserved, domain.UnitStatusSold))
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	reloaded, err := repo.GetByID(ctx, nil, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitStatusReserved, reloaded.Status)
}

func TestUnitRepository_ListProjectScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewUnitRepository(db)

	mine := testutil.CreateProject(t, db)
	theirs := testutil.CreateProject(t, db)
	testutil.CreateUnit(t, db, mine.ID, domain.UnitStatusAvailable)
	testutil.CreateUnit(t, db, theirs.ID, domain.UnitStatusAvailable)

	admin := testutil.AdminActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleAdmin))
	_, total, err := repo.List(ctx, admin, 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	seller := testutil.SalesActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleSales), mine.ID)
	units, total, err := repo.List(ctx, seller, 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, mine.ID, units[0].ProjectID)

	unassigned := testutil.SalesActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleSales))
	_, total, err = repo.List(ctx, unassigned, 1, 20, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReservationRepository_CompareAndSwapStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewReservationRepository(db)

	employee := testutil.CreateEmployee(t, db, domain.EmployeeRoleSales)
	unit := testutil.CreateUnit(t, db, testutil.CreateProject(t, db).ID, domain.UnitStatusReserved)
	client := testutil.CreateClient(t, db, domain.ClientStatusReserved)
	reservation := testutil.CreateReservation(t, db, client, unit, employee.ID, domain.ReservationStatusActive, time.Now().UTC())

	cancelledAt := time.Now().UTC()
	require.NoError(t, repo.CompareAndSwapStatus(ctx, nil, reservation.ID,
		domain.ReservationStatusActive, domain.ReservationStatusCancelled,
		map[string]interface{}{"cancelled_at": cancelledAt, "cancel_reason": "changed mind"}))

	reloaded, err := repo.GetByID(ctx, nil, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusCancelled, reloaded.Status)
	assert.Equal(t, "changed mind", reloaded.CancelReason)
	require.NotNil(t, reloaded.CancelledAt)

	err = repo.CompareAndSwapStatus(ctx, nil, reservation.ID, domain.ReservationStatusActive, domain.ReservationStatusConverted, nil)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)
}

func TestReservationRepository_ClientUnitQueries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewReservationRepository(db)

	employee := testutil.CreateEmployee(t, db, domain.EmployeeRoleSales)
	unit := testutil.CreateUnit(t, db, testutil.CreateProject(t, db).ID, domain.UnitStatusReserved)
	client := testutil.CreateClient(t, db, domain.ClientStatusReserved)

	base := time.Now().UTC().Add(-time.Hour)
	older := testutil.CreateReservation(t, db, client, unit, employee.ID, domain.ReservationStatusConverted, base)
	newer := testutil.CreateReservation(t, db, client, unit, employee.ID, domain.ReservationStatusConverted, base.Add(10*time.Minute))
	active := testutil.CreateReservation(t, db, client, unit, employee.ID, domain.ReservationStatusActive, base.Add(20*time.Minute))

	converted, err := repo.ListByClientUnit(ctx, nil, client.ID, unit.ID, domain.ReservationStatusConverted)
	require.NoError(t, err)
	require.Len(t, converted, 2)
	assert.Equal(t, newer.ID, converted[0].ID)
	assert.Equal(t, older.ID, converted[1].ID)

	count, err := repo.CountActiveByUnit(ctx, nil, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountByClient(ctx, nil, client.ID, domain.ReservationStatusActive, domain.ReservationStatusConverted)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	latest, err := repo.FindLatestActiveByClient(ctx, nil, client.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, latest.ID)

	require.NoError(t, repo.StampFollowUp(ctx, nil, active.ID, employee.ID, time.Now().UTC(), "call: asked about financing"))
	stamped, err := repo.GetByID(ctx, nil, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "call: asked about financing", stamped.FollowUpDetails)
	require.NotNil(t, stamped.FollowEmployeeID)
	assert.Equal(t, employee.ID, *stamped.FollowEmployeeID)
}

func TestTransitionLogRepository_Lifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewTransitionLogRepository(db)
	actorID := uuid.New()

	entry := &domain.TransitionLog{
		Operation: domain.OperationCreateReservation,
		Status:    domain.TransitionStatusPending,
		ActorID:   actorID,
		Payload:   `{}`,
	}
	require.NoError(t, repo.Create(ctx, entry))

	entityID := uuid.New()
	require.NoError(t, repo.Finish(ctx, entry.ID, domain.TransitionStatusFailed, &entityID, "load_unit", "lock_unit", "unit busy"))

	// Finishing twice is a lost race
	err := repo.Finish(ctx, entry.ID, domain.TransitionStatusCompleted, nil, "", "", "")
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	require.NoError(t, repo.MarkRetried(ctx, entry.ID))
	assert.ErrorIs(t, repo.MarkRetried(ctx, entry.ID), repository.ErrStatusChanged)

	reloaded, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionStatusRetried, reloaded.Status)
	assert.Equal(t, "lock_unit", reloaded.FailedStep)
	require.NotNil(t, reloaded.EntityID)
	assert.Equal(t, entityID, *reloaded.EntityID)
}

func TestTransitionLogRepository_FailStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewTransitionLogRepository(db)

	old := time.Now().UTC().Add(-time.Hour)
	stale := &domain.TransitionLog{
		BaseModel: domain.BaseModel{CreatedAt: old, UpdatedAt: old},
		Operation: domain.OperationDeleteSale,
		Status:    domain.TransitionStatusPending,
		ActorID:   uuid.New(),
		Payload:   `{}`,
	}
	fresh := &domain.TransitionLog{
		Operation: domain.OperationDeleteSale,
		Status:    domain.TransitionStatusPending,
		ActorID:   uuid.New(),
		Payload:   `{}`,
	}
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))

	n, err := repo.FailStale(ctx, time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	failed := domain.TransitionStatusFailed
	entries, total, err := repo.List(ctx, 1, 20, &failed, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, stale.ID, entries[0].ID)
	assert.NotNil(t, entries[0].CompletedAt)
}
