package accounts_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	args := m.Called(ctx, email)
	if a := args.Get(0); a != nil {
		return a.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) List(ctx context.Context) ([]*accounts.Account, error) {
	args := m.Called(ctx)
	if a := args.Get(0); a != nil {
		return a.([]*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) Create(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, account)
	if a := args.Get(0); a != nil {
		return a.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) UpdateFields(ctx context.Context, id uuid.UUID, patch accounts.AccountPatch) (*accounts.Account, error) {
	args := m.Called(ctx, id, patch)
	if a := args.Get(0); a != nil {
		return a.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) SetConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (*accounts.Account, error) {
	args := m.Called(ctx, id, at)
	if a := args.Get(0); a != nil {
		return a.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockDirectory) DeleteByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendConfirmation(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// captureSink keeps every recorded event.
type captureSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (c *captureSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) types() []accounts.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

// linkRecorder is a Notifier that remembers the last link per email.
type linkRecorder struct {
	mu    sync.Mutex
	links map[string]string
	sent  int
}

func newLinkRecorder() *linkRecorder {
	return &linkRecorder{links: map[string]string{}}
}

func (l *linkRecorder) SendConfirmation(_ context.Context, email, link string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.links[email] = link
	l.sent++
	return nil
}

func (l *linkRecorder) token(email string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	link := l.links[email]
	for i := len(link) - 1; i >= 0; i-- {
		if link[i] == '/' {
			return link[i+1:]
		}
	}
	return link
}

// cookieJar is a CookieWriter that keeps the cookies it was asked to set.
type cookieJar struct {
	cookies []accounts.SessionCookie
}

func (j *cookieJar) SetCookie(c accounts.SessionCookie) {
	j.cookies = append(j.cookies, c)
}

func (j *cookieJar) last() accounts.SessionCookie {
	if len(j.cookies) == 0 {
		return accounts.SessionCookie{}
	}
	return j.cookies[len(j.cookies)-1]
}

// fastHasher is a low cost bcrypt hasher for tests.
func fastHasher() *accounts.BcryptHasher {
	return accounts.NewBcryptHasher(4)
}

const testSigningKey = "test-signing-key-0123456789abcdefghij"

func testConfig() accounts.Config {
	cfg := accounts.DefaultConfig()
	cfg.Session.SigningKey = testSigningKey
	cfg.Password.Cost = 4
	return cfg
}
