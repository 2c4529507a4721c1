package models

import (
	"context"
)

type actorContextKey struct{}

// Role is the server-verified role claim of an authenticated caller
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleService Role = "service"
	RoleUser    Role = "user"
)

// Actor is the identity established by the auth provider for one request.
// Every façade action is attributed to an Actor; the role is never taken
// from a client-supplied header.
type Actor struct {
	Id    string
	Email string
	Role  Role
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsService() bool { return a.Role == RoleService }

// WithActor attaches the authenticated actor to a context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext retrieves the authenticated actor, or false if absent.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
