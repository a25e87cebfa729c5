package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultConfirmationKeyPrefix = "accounts:confirm"
	confirmationTokenBytes       = 32
)

// consumeTokenLua deletes the token record and drops the account index only
// when it still points at this token. Consume and RevokeForAccount share it.
// KEYS[1] = token key
// KEYS[2] = account index key
// ARGV[1] = token
var consumeTokenLua = redis.NewScript(`
redis.call('DEL', KEYS[1])
local current = redis.call('GET', KEYS[2])
if current and current == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

type confirmationRecord struct {
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisConfirmationStore keeps confirmation tokens in Redis with a TTL.
type RedisConfirmationStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
	logger Logger
}

// ConfirmationStoreOption configures a RedisConfirmationStore.
type ConfirmationStoreOption func(*RedisConfirmationStore)

// WithConfirmationClock overrides the clock used for embedded expiry checks.
func WithConfirmationClock(now func() time.Time) ConfirmationStoreOption {
	return func(s *RedisConfirmationStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConfirmationLogger sets the logger.
func WithConfirmationLogger(logger Logger) ConfirmationStoreOption {
	return func(s *RedisConfirmationStore) {
		s.logger = normalizeLogger(logger)
	}
}

// NewRedisConfirmationStore returns a store using client and key prefix.
func NewRedisConfirmationStore(client redis.UniversalClient, prefix string, opts ...ConfirmationStoreOption) *RedisConfirmationStore {
	if prefix == "" {
		prefix = defaultConfirmationKeyPrefix
	}
	s := &RedisConfirmationStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisConfirmationStore) tokenPrefix() string {
	return s.prefix + ":token:"
}

func (s *RedisConfirmationStore) tokenKey(token string) string {
	return s.tokenPrefix() + token
}

func (s *RedisConfirmationStore) accountKey(accountID string) string {
	return s.prefix + ":account:" + accountID
}

// Issue creates a fresh token for accountID that expires after ttl.
func (s *RedisConfirmationStore) Issue(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	if accountID == "" {
		return "", NewValidationError("account id is required")
	}
	if ttl <= 0 {
		return "", NewValidationError("confirmation ttl must be positive")
	}

	payload, err := json.Marshal(confirmationRecord{
		AccountID: accountID,
		ExpiresAt: s.now().Add(ttl).UTC(),
	})
	if err != nil {
		return "", NewDependencyError(err, "failed to encode confirmation token")
	}

	for range 3 {
		token, err := newConfirmationToken()
		if err != nil {
			return "", NewDependencyError(err, "failed to generate confirmation token")
		}

		ok, err := s.redis.SetNX(ctx, s.tokenKey(token), payload, ttl).Result()
		if err != nil {
			return "", NewDependencyError(err, "failed to store confirmation token")
		}
		if !ok {
			// collision, try again with a new token
			continue
		}

		if err := s.redis.Set(ctx, s.accountKey(accountID), token, ttl).Err(); err != nil {
			s.redis.Del(ctx, s.tokenKey(token))
			return "", NewDependencyError(err, "failed to index confirmation token")
		}
		return token, nil
	}

	return "", NewDependencyError(errors.New("token collision"), "failed to generate confirmation token")
}

// Resolve returns the account id the token was issued for. Unknown and
// expired tokens both yield a NotFound error.
func (s *RedisConfirmationStore) Resolve(ctx context.Context, token string) (string, error) {
	rec, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return rec.AccountID, nil
}

func (s *RedisConfirmationStore) lookup(ctx context.Context, token string) (*confirmationRecord, error) {
	if token == "" {
		return nil, newTokenNotFoundError()
	}

	raw, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, newTokenNotFoundError()
		}
		return nil, NewDependencyError(err, "failed to read confirmation token")
	}

	var rec confirmationRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.AccountID == "" {
		s.logger.Warn("discarding unreadable confirmation token record")
		return nil, newTokenNotFoundError()
	}

	if !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt) {
		return nil, newTokenNotFoundError()
	}
	return &rec, nil
}

// Consume removes the token. Consuming an unknown token is not an error.
func (s *RedisConfirmationStore) Consume(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	raw, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return NewDependencyError(err, "failed to read confirmation token")
	}

	var rec confirmationRecord
	_ = json.Unmarshal(raw, &rec)

	keys := []string{s.tokenKey(token), s.accountKey(rec.AccountID)}
	if err := consumeTokenLua.Run(ctx, s.redis, keys, token).Err(); err != nil {
		return NewDependencyError(err, "failed to consume confirmation token")
	}
	return nil
}

// RevokeForAccount removes any outstanding token for accountID.
func (s *RedisConfirmationStore) RevokeForAccount(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}
	current, err := s.redis.Get(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return NewDependencyError(err, "failed to read confirmation token index")
	}

	keys := []string{s.tokenKey(current), s.accountKey(accountID)}
	if err := consumeTokenLua.Run(ctx, s.redis, keys, current).Err(); err != nil {
		return NewDependencyError(err, "failed to revoke confirmation token")
	}
	return nil
}

func newTokenNotFoundError() error {
	return NewNotFoundError("confirmation token not found")
}

func newConfirmationToken() (string, error) {
	buf := make([]byte, confirmationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
