// Package middleware provides authentication, logging, metrics and rate
// limiting middleware for the HTTP surface.
package middleware

import (
	"context"
	"errors"

	"folio/internal/identity"
	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Provisioner is called once a token resolves so the local users table
// carries a row for the caller.
type Provisioner func(ctx context.Context, id *identity.Identity) error

// Auth wires an identity resolver into Fiber handlers.
type Auth struct {
	resolver  identity.Resolver
	provision Provisioner
}

// NewAuth builds the auth middleware set. provision may be nil.
func NewAuth(resolver identity.Resolver, provision Provisioner) *Auth {
	return &Auth{resolver: resolver, provision: provision}
}

// Required rejects anonymous callers with 401 and a sign-in redirect hint.
func (a *Auth) Required() fiber.Handler {
	return a.handler(true, false)
}

// Optional resolves the caller when a valid token is present and otherwise
// continues anonymously.
func (a *Auth) Optional() fiber.Handler {
	return a.handler(false, false)
}

// WebSocket is Required, but also accepts the token as a query parameter
// since browsers cannot set headers on upgrade requests.
func (a *Auth) WebSocket() fiber.Handler {
	return a.handler(true, true)
}

func (a *Auth) handler(required, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := identity.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" && allowQuery {
			token = c.Query("token")
		}

		id, err := a.resolver.Resolve(c.UserContext(), token)
		if errors.Is(err, identity.ErrRevocationUnavailable) {
			// A revoked token must not slip through while the blacklist is down.
			RedisErrors.WithLabelValues("exists").Inc()
			AuthFailures.WithLabelValues("revocation_unavailable").Inc()
			Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
			return models.Respond(c, models.NewTransientError(err))
		}
		if err != nil {
			if !required {
				return c.Next()
			}
			reason := "invalid"
			switch {
			case errors.Is(err, identity.ErrNoToken):
				reason = "missing"
			case errors.Is(err, identity.ErrRevoked):
				reason = "revoked"
			}
			AuthFailures.WithLabelValues(reason).Inc()
			return models.Respond(c, models.NewAuthError("Sign in to continue"))
		}

		if a.provision != nil {
			if err := a.provision(c.UserContext(), id); err != nil {
				Logger.ErrorContext(c.UserContext(), "failed to provision user",
					"user_id", id.UserID, "error", err)
				return models.Respond(c, err)
			}
		}

		c.Locals("userID", id.UserID)
		c.Locals("identity", id)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), UserIDKey, id.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// UserID returns the resolved caller, or 0 for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}
