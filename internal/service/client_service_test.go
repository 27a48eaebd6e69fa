package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "national format", raw: "010 1234 5678", want: "+201012345678"},
		{name: "already international", raw: "+20 101 234 5678", want: "+201012345678"},
		{name: "empty stays empty", raw: "  ", want: ""},
		{name: "garbage", raw: "call me", wantErr: true},
		{name: "too short", raw: "0101", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.NormalizePhone(tt.raw, "EG")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientService_CreateAndUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := service.NewClientService(service.NewRepositories(db), "EG", zap.NewNop(), db)
	admin := testutil.AdminActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleAdmin))

	client, err := svc.Create(ctx, admin, &domain.CreateClientRequest{
		Name:  "  Mona Adel ",
		Phone: "010 1234 5678",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mona Adel", client.Name)
	assert.Equal(t, "+201012345678", client.Phone)
	assert.Equal(t, domain.ClientStatusNew, client.Status)
	require.NotNil(t, client.AssignedEmployeeID)
	assert.Equal(t, admin.EmployeeID, *client.AssignedEmployeeID)

	t.Run("duplicate phone", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, &domain.CreateClientRequest{Name: "Someone", Phone: "+201012345678"})
		assert.ErrorIs(t, err, service.ErrDuplicateClient)
	})

	t.Run("invalid phone", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, &domain.CreateClientRequest{Name: "Someone", Phone: "12"})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "phone")
	})

	t.Run("inactive assignee", func(t *testing.T) {
		inactive := testutil.CreateEmployee(t, db, domain.EmployeeRoleSales)
		require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

		_, err := svc.Create(ctx, admin, &domain.CreateClientRequest{Name: "Someone", AssignedEmployeeID: &inactive.ID})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "assignedEmployeeId")
	})

	t.Run("pre-reservation status change", func(t *testing.T) {
		status := domain.ClientStatusVisited
		updated, err := svc.Update(ctx, admin, client.ID, &domain.UpdateClientRequest{
			Name:   client.Name,
			Phone:  client.Phone,
			Status: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ClientStatusVisited, updated.Status)
	})

	t.Run("reserved is owned by the lifecycle", func(t *testing.T) {
		status := domain.ClientStatusReserved
		_, err := svc.Update(ctx, admin, client.ID, &domain.UpdateClientRequest{
			Name:   client.Name,
			Phone:  client.Phone,
			Status: &status,
		})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "status")
	})

	t.Run("reserved client keeps lifecycle status", func(t *testing.T) {
		reserved := testutil.CreateClient(t, db, domain.ClientStatusReserved)
		status := domain.ClientStatusLead
		_, err := svc.Update(ctx, admin, reserved.ID, &domain.UpdateClientRequest{
			Name:   reserved.Name,
			Phone:  reserved.Phone,
			Status: &status,
		})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("list filters by status", func(t *testing.T) {
		status := domain.ClientStatusVisited
		page, err := svc.List(ctx, 1, 20, &repository.ClientFilters{Status: &status}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})
}

func TestClientService_Delete(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	svc := service.NewClientService(service.NewRepositories(f.db), "EG", zap.NewNop(), f.db)

	t.Run("removes follow-ups with the client", func(t *testing.T) {
		client := testutil.CreateClient(t, f.db, domain.ClientStatusNew)
		_, err := f.svc.RecordFollowUp(ctx, f.admin, client.ID, &domain.RecordFollowUpRequest{Type: domain.FollowUpTypeCall})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, f.admin, client.ID))
		assert.Equal(t, int64(0), f.count(t, &domain.FollowUp{}))

		_, err = svc.GetByID(ctx, client.ID)
		var notFound *service.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})

	t.Run("refuses clients with reservations", func(t *testing.T) {
		client := testutil.CreateClient(t, f.db, domain.ClientStatusNew)
		unit := testutil.CreateUnit(t, f.db, f.project.ID, domain.UnitStatusAvailable)
		f.reserve(t, client, unit)

		err := svc.Delete(ctx, f.admin, client.ID)
		assert.ErrorIs(t, err, service.ErrHasDependents)
	})

	t.Run("admin only", func(t *testing.T) {
		client := testutil.CreateClient(t, f.db, domain.ClientStatusNew)
		seller := testutil.SalesActor(testutil.CreateEmployee(t, f.db, domain.EmployeeRoleSales))

		err := svc.Delete(ctx, seller, client.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})
}

func TestClientService_Timeline(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	svc := service.NewClientService(service.NewRepositories(f.db), "EG", zap.NewNop(), f.db)

	client := testutil.CreateClient(t, f.db, domain.ClientStatusNew)
	_, err := f.svc.RecordFollowUp(ctx, f.admin, client.ID, &domain.RecordFollowUpRequest{Type: domain.FollowUpTypeCall})
	require.NoError(t, err)

	other := testutil.CreateProject(t, f.db)
	f.reserve(t, client, testutil.CreateUnit(t, f.db, f.project.ID, domain.UnitStatusAvailable))
	testutil.CreateReservation(t, f.db, client, testutil.CreateUnit(t, f.db, other.ID, domain.UnitStatusReserved),
		f.admin.EmployeeID, domain.ReservationStatusCancelled, time.Now().Add(-time.Hour))

	t.Run("admin sees everything", func(t *testing.T) {
		timeline, err := svc.Timeline(ctx, f.admin, client.ID)
		require.NoError(t, err)
		assert.Len(t, timeline.FollowUps, 1)
		assert.Len(t, timeline.Reservations, 2)
		assert.Empty(t, timeline.Sales)
	})

	t.Run("sales employee sees assigned projects", func(t *testing.T) {
		seller := testutil.SalesActor(testutil.CreateEmployee(t, f.db, domain.EmployeeRoleSales), f.project.ID)
		timeline, err := svc.Timeline(ctx, seller, client.ID)
		require.NoError(t, err)
		require.Len(t, timeline.Reservations, 1)
		assert.Equal(t, f.project.ID, timeline.Reservations[0].ProjectID)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := svc.Timeline(ctx, f.admin, uuid.New())
		var notFound *service.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}
