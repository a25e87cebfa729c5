package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the identity snapshot signed into a session token.
type SessionClaims struct {
	AccountID string
	Email     string
	FirstName string
	LastName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// claimsFromAccount builds the snapshot for a.
func claimsFromAccount(a *Account) SessionClaims {
	return SessionClaims{
		AccountID: a.ID.String(),
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

// jwtSessionClaims is the wire form of SessionClaims.
type jwtSessionClaims struct {
	jwt.RegisteredClaims
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (c *jwtSessionClaims) toSessionClaims() *SessionClaims {
	out := &SessionClaims{
		AccountID: c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
	if c.RegisteredClaims.IssuedAt != nil {
		out.IssuedAt = c.RegisteredClaims.IssuedAt.Time
	}
	if c.RegisteredClaims.ExpiresAt != nil {
		out.ExpiresAt = c.RegisteredClaims.ExpiresAt.Time
	}
	return out
}
