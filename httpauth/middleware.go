package httpauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
)

const sessionLocalsKey = "accounts.session"

// SessionResolver rebuilds a session from the cookie value.
type SessionResolver interface {
	SessionFromToken(token string) (*accounts.Session, error)
}

// RequireSession rejects requests without a valid session cookie and
// stores the session for SessionFromFiber.
func RequireSession(resolver SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return ErrorHandler(c, accounts.NewUnauthorizedError())
		}

		session, err := resolver.SessionFromToken(token)
		if err != nil {
			return ErrorHandler(c, accounts.NewUnauthorizedError())
		}

		c.Locals(sessionLocalsKey, session)
		return c.Next()
	}
}

// OptionalSession stores the session when the cookie is valid and carries on
// regardless.
func OptionalSession(resolver SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := c.Cookies(cookieName); token != "" {
			if session, err := resolver.SessionFromToken(token); err == nil {
				c.Locals(sessionLocalsKey, session)
			}
		}
		return c.Next()
	}
}

// SessionFromFiber returns the session stored by RequireSession.
func SessionFromFiber(c *fiber.Ctx) (*accounts.Session, error) {
	session, ok := c.Locals(sessionLocalsKey).(*accounts.Session)
	if !ok || session == nil {
		return nil, accounts.NewUnauthorizedError()
	}
	return session, nil
}
