package accounts_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionGetUserID(t *testing.T) {
	id := uuid.New()
	s := &accounts.Session{AccountID: id}
	assert.Equal(t, id.String(), s.GetUserID())

	var missing *accounts.Session
	assert.Empty(t, missing.GetUserID())
}

func TestSessionFromTokenCarriesClaims(t *testing.T) {
	h := newServiceHarness(t)
	account := h.registerConfirmed(t)

	session, token := h.login(t)
	require.NotEmpty(t, token)
	assert.Equal(t, account.ID, session.AccountID)
	assert.Equal(t, account.Email, session.Email)
	assert.True(t, session.ExpiresAt.After(session.IssuedAt))
	assert.WithinDuration(t, session.IssuedAt.Add(24*time.Hour), session.ExpiresAt, time.Second)
}

func TestSessionCookieHTTPCookie(t *testing.T) {
	expires := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	c := accounts.SessionCookie{
		Name:     "qid",
		Value:    "token",
		Domain:   "localhost",
		Path:     "/",
		Expires:  expires,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Strict",
	}

	hc := c.HTTPCookie()
	assert.Equal(t, "qid", hc.Name)
	assert.Equal(t, "token", hc.Value)
	assert.Equal(t, "localhost", hc.Domain)
	assert.True(t, hc.HttpOnly)
	assert.True(t, hc.Secure)
	assert.Equal(t, http.SameSiteStrictMode, hc.SameSite)
	assert.True(t, hc.Expires.Equal(expires))
	assert.False(t, c.IsClearing())

	c.SameSite = "lax"
	assert.Equal(t, http.SameSiteLaxMode, c.HTTPCookie().SameSite)
	c.SameSite = "None"
	assert.Equal(t, http.SameSiteNoneMode, c.HTTPCookie().SameSite)

	clearing := accounts.SessionCookie{Name: "qid", MaxAge: -1}
	assert.True(t, clearing.IsClearing())
}
