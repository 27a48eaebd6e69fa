package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
)

// Actor is the employee performing a request. It is resolved once by the middleware and
// passed explicitly into every lifecycle operation.
type Actor struct {
	EmployeeID uuid.UUID
	Name       string
	Email      string
	Role       domain.EmployeeRole
	// ProjectIDs are the projects a sales employee is assigned to. Ignored for admins.
	ProjectIDs []uuid.UUID
	AuthMethod string
}

type contextKey string

const actorContextKey contextKey = "actor"

// WithActor adds the actor to the context
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// FromContext extracts the actor from the context
func FromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(*Actor)
	return actor, ok && actor != nil
}

// MustFromContext extracts the actor or panics
func MustFromContext(ctx context.Context) *Actor {
	actor, ok := FromContext(ctx)
	if !ok {
		panic("actor not found in context")
	}
	return actor
}

func (a *Actor) IsAdmin() bool {
	return a.Role == domain.EmployeeRoleAdmin
}

// CanAccessProject reports whether the actor may work with units and sales in the project.
func (a *Actor) CanAccessProject(projectID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	for _, id := range a.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// ProjectFilter returns the projects queries must be limited to. restricted is false for
// admins, who see everything.
func (a *Actor) ProjectFilter() (projectIDs []uuid.UUID, restricted bool) {
	if a.IsAdmin() {
		return nil, false
	}
	return a.ProjectIDs, true
}
