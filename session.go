package accounts

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Session is the verified identity carried by a session token. It is a
// snapshot of the account at issuance time, not a live view.
type Session struct {
	AccountID uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) GetUserID() string {
	if s == nil {
		return ""
	}
	return s.AccountID.String()
}

func sessionFromClaims(claims *SessionClaims) (*Session, error) {
	if claims == nil {
		return nil, NewUnauthorizedError()
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil || id == uuid.Nil {
		return nil, NewUnauthorizedError()
	}
	return &Session{
		AccountID: id,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// SessionCookie describes a cookie the transport must set. A clearing cookie
// has an empty value and an expiry in the past.
type SessionCookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// IsClearing reports whether the cookie instructs the holder to discard the session.
func (c SessionCookie) IsClearing() bool {
	return c.Value == "" && c.MaxAge < 0
}

// HTTPCookie converts to a net/http cookie.
func (c SessionCookie) HTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	switch c.SameSite {
	case "Strict", "strict":
		hc.SameSite = http.SameSiteStrictMode
	case "Lax", "lax":
		hc.SameSite = http.SameSiteLaxMode
	case "None", "none":
		hc.SameSite = http.SameSiteNoneMode
	}
	return hc
}

func newSessionCookie(cfg CookieConfig, value string, expires time.Time) SessionCookie {
	return SessionCookie{
		Name:     cfg.Name,
		Value:    value,
		Domain:   cfg.Domain,
		Path:     cfg.Path,
		Expires:  expires,
		Secure:   cfg.Secure,
		HTTPOnly: true,
		SameSite: cfg.SameSite,
	}
}

func clearingSessionCookie(cfg CookieConfig, now time.Time) SessionCookie {
	c := newSessionCookie(cfg, "", now.Add(-time.Hour*(24*365)))
	c.MaxAge = -1
	return c
}
