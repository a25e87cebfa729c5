package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "cli-test-signing-key-0123456789abcdef"

var linkPattern = regexp.MustCompile(`http://localhost:3000/user/confirm/(\S+)`)

type cliEnv struct {
	dsn   string
	redis string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("ACCOUNTS_SESSION_SIGNING_KEY", testSigningKey)
	t.Setenv("ACCOUNTS_PASSWORD_COST", "4")
	return cliEnv{
		dsn:   "file:" + filepath.Join(t.TempDir(), "accounts.db"),
		redis: mr.Addr(),
	}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", e.dsn, "--redis", e.redis}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCLIRegisterConfirmLoginDelete(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "register",
		"--email", "Alice@Example.com",
		"--password", "pw123",
		"--first-name", "Alice",
		"--last-name", "Liddell",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "alice@example.com"`)
	assert.NotContains(t, out, "password_hash")

	match := linkPattern.FindStringSubmatch(out)
	require.Len(t, match, 2, "confirmation link not printed: %s", out)

	_, _, err = env.run(t, "login", "--email", "alice@example.com", "--password", "pw123")
	require.Error(t, err)

	out, _, err = env.run(t, "confirm", match[1])
	require.NoError(t, err)
	assert.Contains(t, out, `"confirmed": true`)

	out, cookies, err := env.run(t, "login", "--email", "alice@example.com", "--password", "pw123")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)
	assert.Contains(t, cookies, "Set-Cookie: qid=")
	assert.Contains(t, cookies, "HttpOnly")
	assert.Contains(t, cookies, "SameSite=Strict")

	_, cookies, err = env.run(t, "delete", "--token", token)
	require.NoError(t, err)
	assert.Contains(t, cookies, "Set-Cookie: qid=;")

	_, _, err = env.run(t, "login", "--email", "alice@example.com", "--password", "pw123")
	require.Error(t, err)
}

func TestCLIUpdateOnlyChangedFlags(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "register",
		"--email", "bob@example.com",
		"--password", "pw123",
		"--first-name", "Bob",
		"--last-name", "Builder",
	)
	require.NoError(t, err)

	id := regexp.MustCompile(`"id": "([0-9a-f-]{36})"`).FindStringSubmatch(out)
	require.Len(t, id, 2)

	out, _, err = env.run(t, "update", id[1], "--first-name", "Robert")
	require.NoError(t, err)
	assert.Contains(t, out, `"first_name": "Robert"`)
	assert.Contains(t, out, `"last_name": "Builder"`)

	out, _, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
}

func TestLoadConfigFileOverlaysEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	yaml := `accounts:
  cookie:
    name: sid
    secure: true
  session:
    ttl: 2h
runtime:
  redis_addr: redis.internal:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := loadConfig(path, map[string]string{
		"ACCOUNTS_SESSION_SIGNING_KEY": testSigningKey,
		"ACCOUNTS_COOKIE_DOMAIN":       "example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "sid", cfg.Accounts.Cookie.Name)
	assert.True(t, cfg.Accounts.Cookie.Secure)
	assert.Equal(t, "example.com", cfg.Accounts.Cookie.Domain)
	assert.Equal(t, "2h0m0s", cfg.Accounts.Session.TTL.String())
	assert.Equal(t, testSigningKey, cfg.Accounts.Session.SigningKey)
	assert.Equal(t, "redis.internal:6379", cfg.Runtime.RedisAddr)
	assert.Equal(t, ":3000", cfg.Runtime.HTTPAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), map[string]string{})
	assert.Error(t, err)
}

func TestCLIAuditLog(t *testing.T) {
	env := newCLIEnv(t)
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	t.Setenv("ACCOUNTS_AUDIT_LOG", auditPath)

	_, _, err := env.run(t, "register",
		"--email", "bob@example.com",
		"--password", "pw123",
		"--first-name", "Bob",
		"--last-name", "Builder",
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"verb":"account.registered"`)
	assert.NotContains(t, string(raw), "pw123")
}
