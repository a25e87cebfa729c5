package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSigningKeyBytes is the shortest HS256 key NewJWTSessionService accepts.
const MinSigningKeyBytes = 32

// JWTSessionService signs session tokens with HS256.
type JWTSessionService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
	logger     Logger
}

// JWTSessionOption configures a JWTSessionService.
type JWTSessionOption func(*JWTSessionService)

// WithSessionClock overrides the clock used for issuance and expiry checks.
func WithSessionClock(now func() time.Time) JWTSessionOption {
	return func(s *JWTSessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger Logger) JWTSessionOption {
	return func(s *JWTSessionService) {
		s.logger = normalizeLogger(logger)
	}
}

// NewJWTSessionService creates a session token service. The key must be at
// least MinSigningKeyBytes long.
func NewJWTSessionService(signingKey []byte, issuer string, opts ...JWTSessionOption) (*JWTSessionService, error) {
	if len(signingKey) < MinSigningKeyBytes {
		return nil, NewValidationError("session signing key is too short", map[string]any{
			"min_bytes": MinSigningKeyBytes,
		})
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	s := &JWTSessionService{
		signingKey: key,
		issuer:     issuer,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Issue signs claims with an expiry of ttl from now.
func (s *JWTSessionService) Issue(claims SessionClaims, ttl time.Duration) (string, error) {
	if claims.AccountID == "" {
		return "", NewValidationError("session claims require an account id")
	}
	if ttl <= 0 {
		return "", NewValidationError("session ttl must be positive")
	}

	now := s.now()
	wire := &jwtSessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   claims.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ID:        claims.AccountID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(s.signingKey)
	if err != nil {
		return "", NewDependencyError(err, "failed to sign session token")
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Every failure returns the
// same Unauthorized error.
func (s *JWTSessionService) Verify(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, NewUnauthorizedError()
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &jwtSessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)
	if err != nil {
		s.logger.Debug("session token rejected", "error", err)
		return nil, NewUnauthorizedError()
	}

	wire, ok := parsed.Claims.(*jwtSessionClaims)
	if !ok || !parsed.Valid || wire.ID == "" {
		return nil, NewUnauthorizedError()
	}
	return wire.toSessionClaims(), nil
}
