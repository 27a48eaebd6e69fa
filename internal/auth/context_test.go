package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	var nilActor *auth.Actor
	_, ok = auth.FromContext(auth.WithActor(context.Background(), nilActor))
	assert.False(t, ok)

	actor := &auth.Actor{EmployeeID: uuid.New(), Role: domain.EmployeeRoleSales}
	got, ok := auth.FromContext(auth.WithActor(context.Background(), actor))
	assert.True(t, ok)
	assert.Same(t, actor, got)
}

func TestMustFromContext_Panics(t *testing.T) {
	assert.Panics(t, func() { auth.MustFromContext(context.Background()) })
}

func TestActor_ProjectFilter(t *testing.T) {
	projectID := uuid.New()

	admin := &auth.Actor{Role: domain.EmployeeRoleAdmin}
	ids, restricted := admin.ProjectFilter()
	assert.False(t, restricted)
	assert.Nil(t, ids)
	assert.True(t, admin.CanAccessProject(projectID))

	seller := &auth.Actor{Role: domain.EmployeeRoleSales, ProjectIDs: []uuid.UUID{projectID}}
	ids, restricted = seller.ProjectFilter()
	assert.True(t, restricted)
	assert.Equal(t, []uuid.UUID{projectID}, ids)

	unassigned := &auth.Actor{Role: domain.EmployeeRoleSales}
	ids, restricted = unassigned.ProjectFilter()
	assert.True(t, restricted)
	assert.Empty(t, ids)
	assert.False(t, unassigned.CanAccessProject(projectID))
}
