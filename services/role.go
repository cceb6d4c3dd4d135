package services

import (
	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   model.Role
}

// ActorFromUser builds an Actor from the user loaded by the auth middleware.
func ActorFromUser(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// RequireRole allows the call only when the actor holds exactly role.
func RequireRole(actor Actor, role model.Role) error {
	if actor.Role != role {
		return apperr.Forbidden("this action requires the " + string(role) + " role")
	}
	return nil
}

// RequireAnyRole allows the call when the actor holds one of roles.
func RequireAnyRole(actor Actor, roles ...model.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("insufficient permissions")
}
