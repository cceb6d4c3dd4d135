package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/utils/middleware"
)

// Actor returns the authenticated caller set by the auth middleware.
func Actor(c *fiber.Ctx) (services.Actor, bool) {
	user, ok := middleware.GetUser(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.ActorFromUser(user), true
}

// ParamID parses a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
