package httpauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-router"
)

// RouterCookieSetter is the part of router.Context the cookie writer needs.
type RouterCookieSetter interface {
	Cookie(cookie *router.Cookie)
}

// NewRouterCookieWriter sets session cookies through a go-router context.
func NewRouterCookieWriter(ctx RouterCookieSetter) accounts.CookieWriter {
	return accounts.CookieWriterFunc(func(c accounts.SessionCookie) {
		ctx.Cookie(&router.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			MaxAge:   c.MaxAge,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		})
	})
}

// NewFiberCookieWriter sets session cookies on a fiber response.
func NewFiberCookieWriter(c *fiber.Ctx) accounts.CookieWriter {
	return accounts.CookieWriterFunc(func(sc accounts.SessionCookie) {
		c.Cookie(&fiber.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Domain:   sc.Domain,
			Path:     sc.Path,
			MaxAge:   sc.MaxAge,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HTTPOnly: sc.HTTPOnly,
			SameSite: sc.SameSite,
		})
	})
}
