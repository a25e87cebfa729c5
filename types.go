package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs. go-logger's glog loggers satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AccountDirectory is the persistence contract for account records.
// Implementations return NotFound errors for missing records and Conflict
// errors for duplicate emails. Every call is atomic at the record level.
type AccountDirectory interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error)
	SetConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (*Account, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	DeleteByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// ConfirmationTokenStore maps short lived random tokens to account ids.
type ConfirmationTokenStore interface {
	Issue(ctx context.Context, accountID string, ttl time.Duration) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Consume(ctx context.Context, token string) error
	RevokeForAccount(ctx context.Context, accountID string) error
}

// SessionTokenService issues and verifies signed, self contained session tokens.
type SessionTokenService interface {
	Issue(claims SessionClaims, ttl time.Duration) (string, error)
	Verify(token string) (*SessionClaims, error)
}

// Notifier delivers the confirmation link to the account owner.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, link string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, email, link string) error

// SendConfirmation implements Notifier.
func (f NotifierFunc) SendConfirmation(ctx context.Context, email, link string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, link)
}

// CookieWriter is implemented by the transport; it receives the session cookie
// to set, or an expired cookie to clear it.
type CookieWriter interface {
	SetCookie(cookie SessionCookie)
}

// CookieWriterFunc adapts a function to the CookieWriter interface.
type CookieWriterFunc func(cookie SessionCookie)

// SetCookie implements CookieWriter.
func (f CookieWriterFunc) SetCookie(cookie SessionCookie) {
	if f != nil {
		f(cookie)
	}
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (defLogger) print(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString("[" + level + "] ACCOUNTS " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards everything; handy in tests.
func NoopLogger() Logger { return noopLogger{} }

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
