package httpauth_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/httpauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]*accounts.Session

func (r staticResolver) SessionFromToken(token string) (*accounts.Session, error) {
	if s, ok := r[token]; ok {
		return s, nil
	}
	return nil, accounts.NewUnauthorizedError()
}

func TestOptionalSession(t *testing.T) {
	id := uuid.New()
	resolver := staticResolver{"good": {AccountID: id}}

	app := fiber.New()
	app.Get("/", httpauth.OptionalSession(resolver, "qid"), func(c *fiber.Ctx) error {
		session, err := httpauth.SessionFromFiber(c)
		if err != nil {
			return c.SendString("anonymous")
		}
		return c.SendString(session.GetUserID())
	})

	cases := map[string]string{"": "anonymous", "bad": "anonymous", "good": id.String()}
	for token, want := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: "qid", Value: token})
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, want, string(body), token)
	}
}

func TestRequireSessionStoresSession(t *testing.T) {
	id := uuid.New()
	resolver := staticResolver{"good": {AccountID: id}}

	app := fiber.New()
	app.Get("/", httpauth.RequireSession(resolver, "qid"), func(c *fiber.Ctx) error {
		session, err := httpauth.SessionFromFiber(c)
		require.NoError(t, err)
		assert.Equal(t, id, session.AccountID)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "qid", Value: "good"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
