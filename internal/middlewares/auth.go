package middlewares

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/campaign-dispatcher/pkg/response"
)

const (
	APIKeyHeader  = "x-admin-auth-key"
	ActorIDHeader = "x-actor-id"

	actorIDContextKey = "actorID"
	maxActorIDLength  = 100
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	// If the API key is not configured, treat this as a server-side misconfiguration.
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured for this endpoint group"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" || !secureCompare(token, apiKey) {
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}

// ActorID copies the caller supplied x-actor-id header into the request
// context so manual state changes can be attributed in the audit trail.
func ActorID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := strings.TrimSpace(c.Request().Header.Get(ActorIDHeader))
			if len(actor) > maxActorIDLength {
				return response.BadRequestWithMessage(c, fmt.Sprintf("%s must be at most %d characters", ActorIDHeader, maxActorIDLength))
			}
			if actor != "" {
				c.Set(actorIDContextKey, actor)
			}
			return next(c)
		}
	}
}

// ActorIDFrom returns the actor set by ActorID, or nil.
func ActorIDFrom(c echo.Context) *string {
	actor, ok := c.Get(actorIDContextKey).(string)
	if !ok || actor == "" {
		return nil
	}
	return &actor
}
