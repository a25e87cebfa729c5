package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service runs the account lifecycle: registration, email confirmation,
// login, logout, update and deletion. It holds no per request state.
type Service struct {
	cfg          Config
	directory    AccountDirectory
	tokens       ConfirmationTokenStore
	sessions     SessionTokenService
	hasher       PasswordHasher
	notifier     Notifier
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	stateMachine AccountStateMachine

	// dummyHash is verified for unknown emails so Login costs the same
	// on every failure path.
	dummyHash string
}

// NewService returns a Service. The session token service is built from
// cfg when sessions is nil.
func NewService(cfg Config, directory AccountDirectory, tokens ConfirmationTokenStore, sessions SessionTokenService) (*Service, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if directory == nil {
		return nil, NewValidationError("account directory is required")
	}
	if tokens == nil {
		return nil, NewValidationError("confirmation token store is required")
	}

	if sessions == nil {
		jwtSessions, err := NewJWTSessionService([]byte(cfg.Session.SigningKey), cfg.Session.Issuer)
		if err != nil {
			return nil, err
		}
		sessions = jwtSessions
	}

	s := &Service{
		cfg:          cfg,
		directory:    directory,
		tokens:       tokens,
		sessions:     sessions,
		hasher:       NewBcryptHasher(cfg.Password.Cost),
		notifier:     NewConsoleNotifier(nil),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
	s.dummyHash = randomPasswordHash(s.hasher)
	s.rebuildStateMachine()
	return s, nil
}

// WithLogger sets the logger used by the service and its state machine.
func (s *Service) WithLogger(logger Logger) *Service {
	s.logger = normalizeLogger(logger)
	s.rebuildStateMachine()
	return s
}

// WithActivitySink configures the sink for lifecycle and auth events.
func (s *Service) WithActivitySink(sink ActivitySink) *Service {
	s.activitySink = normalizeActivitySink(sink)
	s.rebuildStateMachine()
	return s
}

// WithNotifier sets the confirmation message sender.
func (s *Service) WithNotifier(notifier Notifier) *Service {
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

// WithHasher replaces the bcrypt hasher.
func (s *Service) WithHasher(hasher PasswordHasher) *Service {
	if hasher != nil {
		s.hasher = hasher
		s.dummyHash = randomPasswordHash(hasher)
	}
	return s
}

// WithClock injects the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.rebuildStateMachine()
	}
	return s
}

func (s *Service) rebuildStateMachine() {
	s.stateMachine = NewAccountStateMachine(s.directory,
		WithStateMachineClock(s.now),
		WithStateMachineActivitySink(s.activitySink),
		WithStateMachineLogger(s.logger),
	)
}

// Config returns a copy of the active configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Register creates an unconfirmed account and sends its confirmation link.
func (s *Service) Register(ctx context.Context, msg RegisterAccountMessage) (*Account, error) {
	msg.Email = NormalizeEmail(msg.Email)
	if err := msg.Validate(); err != nil {
		return nil, NewValidationError("invalid registration", map[string]any{
			"errors": err.Error(),
		})
	}

	existing, err := s.directory.FindByEmail(ctx, msg.Email)
	switch {
	case err == nil && existing != nil:
		s.logger.Warn("Register email already registered")
		return nil, NewConflictError("email already registered")
	case err != nil && !IsNotFound(err):
		s.logger.Error("Register lookup failed", "error", err)
		return nil, asDependency(err, "failed to look up account")
	}

	hash, err := s.hasher.Hash(msg.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.directory.Create(ctx, &Account{
		ID:           uuid.New(),
		Email:        msg.Email,
		PasswordHash: hash,
		FirstName:    msg.FirstName,
		LastName:     msg.LastName,
	})
	if err != nil {
		if !IsConflict(err) {
			s.logger.Error("Register create failed", "error", err)
		}
		return nil, asDependency(err, "failed to create account")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		AccountID: created.ID.String(),
		Email:     created.Email,
		ToStatus:  AccountStatusUnconfirmed,
	})

	if err := s.sendConfirmation(ctx, created); err != nil {
		s.record(ctx, ActivityEvent{
			EventType: ActivityEventNotificationFailed,
			AccountID: created.ID.String(),
			Email:     created.Email,
			Metadata:  map[string]any{"policy": string(s.cfg.Registration.NotificationPolicy)},
		})
		if s.cfg.Registration.NotificationPolicy == NotificationStrict {
			s.rollbackRegistration(ctx, created)
			return nil, err
		}
		// account stays unconfirmed, ReissueConfirmation recovers it
		s.logger.Warn("Register confirmation not delivered", "account_id", created.ID.String(), "error", err)
	}

	s.logger.Info("Register account created", "account_id", created.ID.String())
	return created.sanitized(), nil
}

// ConfirmEmail marks the token owner confirmed and consumes the token.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*Account, error) {
	accountID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		if IsInvalidToken(err) || IsNotFound(err) {
			s.record(ctx, ActivityEvent{
				EventType: ActivityEventConfirmationRejected,
				Metadata:  map[string]any{"reason": "unknown_or_expired"},
			})
			return nil, NewInvalidTokenError()
		}
		s.logger.Error("ConfirmEmail resolve failed", "error", err)
		return nil, asDependency(err, "failed to resolve confirmation token")
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		s.discardToken(ctx, token)
		return nil, NewInvalidTokenError()
	}

	account, err := s.directory.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			s.discardToken(ctx, token)
			s.record(ctx, ActivityEvent{
				EventType: ActivityEventConfirmationRejected,
				AccountID: accountID,
				Metadata:  map[string]any{"reason": "account_missing"},
			})
			return nil, NewInvalidTokenError()
		}
		return nil, asDependency(err, "failed to load account")
	}

	if account.IsConfirmed() {
		s.discardToken(ctx, token)
		return account.sanitized(), nil
	}

	confirmed, err := s.stateMachine.Transition(ctx, account, AccountStatusConfirmed,
		WithTransitionReason("email_confirmed"),
	)
	if err != nil {
		s.logger.Error("ConfirmEmail transition failed", "account_id", accountID, "error", err)
		return nil, err
	}

	s.discardToken(ctx, token)
	s.logger.Info("ConfirmEmail account confirmed", "account_id", accountID)
	return confirmed.sanitized(), nil
}

// ReissueConfirmation replaces the outstanding token of an unconfirmed
// account and sends a new link.
func (s *Service) ReissueConfirmation(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	account, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return NewNotFoundError("account not found")
		}
		return asDependency(err, "failed to look up account")
	}
	if account.IsConfirmed() {
		return NewConflictError("account already confirmed")
	}

	if err := s.tokens.RevokeForAccount(ctx, account.ID.String()); err != nil {
		return asDependency(err, "failed to revoke confirmation token")
	}
	if err := s.sendConfirmation(ctx, account); err != nil {
		return err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventConfirmationReissued,
		AccountID: account.ID.String(),
		Email:     account.Email,
	})
	return nil
}

// Login verifies credentials, hands the session cookie to w and returns the
// session token. Unknown email and wrong password fail the same way.
func (s *Service) Login(ctx context.Context, email, password string, w CookieWriter) (string, error) {
	email = NormalizeEmail(email)

	account, err := s.directory.FindByEmail(ctx, email)
	if err != nil && !IsNotFound(err) {
		s.logger.Error("Login lookup failed", "error", err)
		return "", asDependency(err, "failed to look up account")
	}

	if account == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.recordLoginFailure(ctx, "", email, "unknown_email")
		return "", NewUnauthorizedError()
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.recordLoginFailure(ctx, account.ID.String(), email, "password_mismatch")
		return "", NewUnauthorizedError()
	}

	if !account.IsConfirmed() {
		s.logger.Warn("Login blocked, account not confirmed", "account_id", account.ID.String())
		s.recordLoginFailure(ctx, account.ID.String(), email, "not_confirmed")
		return "", NewAccountNotConfirmedError()
	}

	token, err := s.sessions.Issue(claimsFromAccount(account), s.cfg.Session.TTL)
	if err != nil {
		s.logger.Error("Login failed to issue session", "error", err)
		return "", asDependency(err, "failed to issue session")
	}

	if w != nil {
		w.SetCookie(newSessionCookie(s.cfg.Cookie, token, s.now().Add(s.cfg.Session.TTL)))
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: account.ID.String(),
		Email:     account.Email,
	})
	return token, nil
}

// Logout tells w to drop the session cookie. Tokens are stateless, so a
// copy of the token held elsewhere stays valid until it expires.
func (s *Service) Logout(ctx context.Context, session *Session, w CookieWriter) {
	if w != nil {
		w.SetCookie(clearingSessionCookie(s.cfg.Cookie, s.now()))
	}
	if session == nil {
		return
	}
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		AccountID: session.GetUserID(),
		Email:     session.Email,
	})
}

// UpdateAccount applies patch to the account with id. Changing the email
// of an unconfirmed account revokes its confirmation token and sends a new
// link to the new address.
func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error) {
	if err := patch.Validate(); err != nil {
		return nil, NewValidationError("invalid account update", map[string]any{
			"errors": err.Error(),
		})
	}

	account, err := s.directory.FindByID(ctx, id)
	if err != nil {
		return nil, asDependency(err, "failed to load account")
	}

	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email == account.Email {
			patch.Email = nil
		} else {
			if account.IsConfirmed() {
				return nil, NewValidationError("email cannot change after confirmation")
			}
			other, err := s.directory.FindByEmail(ctx, email)
			switch {
			case err == nil && other != nil:
				return nil, NewConflictError("email already registered")
			case err != nil && !IsNotFound(err):
				return nil, asDependency(err, "failed to look up account")
			}
			patch.Email = &email
		}
	}

	if patch.IsEmpty() {
		return account.sanitized(), nil
	}

	// a token mailed to the old address must not confirm the new one
	if patch.Email != nil {
		if err := s.tokens.RevokeForAccount(ctx, account.ID.String()); err != nil {
			s.logger.Error("UpdateAccount failed to revoke confirmation token", "error", err)
			return nil, asDependency(err, "failed to revoke confirmation token")
		}
	}

	updated, err := s.directory.UpdateFields(ctx, id, patch)
	if err != nil {
		return nil, asDependency(err, "failed to update account")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountUpdated,
		AccountID: updated.ID.String(),
		Email:     updated.Email,
		Metadata:  map[string]any{"fields": patchFields(patch)},
	})

	if patch.Email != nil {
		if err := s.sendConfirmation(ctx, updated); err != nil {
			s.record(ctx, ActivityEvent{
				EventType: ActivityEventNotificationFailed,
				AccountID: updated.ID.String(),
				Email:     updated.Email,
				Metadata:  map[string]any{"trigger": "email_changed"},
			})
			s.logger.Warn("UpdateAccount confirmation not delivered", "account_id", updated.ID.String(), "error", err)
		}
	}
	return updated.sanitized(), nil
}

// ChangePassword replaces the password of the session owner after
// checking the current one.
func (s *Service) ChangePassword(ctx context.Context, session *Session, current, next string) error {
	account, err := s.sessionAccount(ctx, session)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(current, account.PasswordHash) {
		s.recordLoginFailure(ctx, account.ID.String(), account.Email, "password_mismatch")
		return NewUnauthorizedError()
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.directory.SetPasswordHash(ctx, account.ID, hash); err != nil {
		if IsNotFound(err) {
			return NewUnauthorizedError()
		}
		return asDependency(err, "failed to update password")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		AccountID: account.ID.String(),
		Email:     account.Email,
	})
	return nil
}

// DeleteAccount removes the account that owns session and logs it out.
func (s *Service) DeleteAccount(ctx context.Context, session *Session, w CookieWriter) (*Account, error) {
	account, err := s.sessionAccount(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.RevokeForAccount(ctx, account.ID.String()); err != nil {
		s.logger.Error("DeleteAccount failed to revoke confirmation token", "error", err)
		return nil, asDependency(err, "failed to revoke confirmation token")
	}

	removed, err := s.stateMachine.Transition(ctx, account, AccountStatusDeleted,
		WithTransitionReason("owner_requested"),
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewUnauthorizedError()
		}
		return nil, err
	}

	s.Logout(ctx, session, w)
	s.logger.Info("DeleteAccount account removed", "account_id", account.ID.String())
	return removed.sanitized(), nil
}

// GetAccount returns the account with id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := s.directory.FindByID(ctx, id)
	if err != nil {
		return nil, asDependency(err, "failed to load account")
	}
	return account.sanitized(), nil
}

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	records, err := s.directory.List(ctx)
	if err != nil {
		return nil, asDependency(err, "failed to list accounts")
	}
	out := make([]*Account, 0, len(records))
	for _, r := range records {
		out = append(out, r.sanitized())
	}
	return out, nil
}

// SessionFromToken verifies a session token taken from the cookie.
func (s *Service) SessionFromToken(token string) (*Session, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, NewUnauthorizedError()
	}
	return sessionFromClaims(claims)
}

func (s *Service) sessionAccount(ctx context.Context, session *Session) (*Account, error) {
	if session == nil || session.AccountID == uuid.Nil {
		return nil, NewUnauthorizedError()
	}
	account, err := s.directory.FindByID(ctx, session.AccountID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewUnauthorizedError()
		}
		return nil, asDependency(err, "failed to load account")
	}
	return account, nil
}

func (s *Service) sendConfirmation(ctx context.Context, account *Account) error {
	token, err := s.tokens.Issue(ctx, account.ID.String(), s.cfg.Confirmation.TTL)
	if err != nil {
		return asDependency(err, "failed to issue confirmation token")
	}

	link := ConfirmationLink(s.cfg.Confirmation.LinkBaseURL, token)
	if err := s.notifier.SendConfirmation(ctx, account.Email, link); err != nil {
		return NewDependencyError(err, "failed to send confirmation")
	}
	return nil
}

func (s *Service) rollbackRegistration(ctx context.Context, account *Account) {
	id := account.ID.String()
	if err := s.tokens.RevokeForAccount(ctx, id); err != nil {
		s.logger.Error("Register rollback failed to revoke token", "account_id", id, "error", err)
	}
	if _, err := s.directory.DeleteByID(ctx, account.ID); err != nil && !IsNotFound(err) {
		s.logger.Error("Register rollback failed to delete account", "account_id", id, "error", err)
		return
	}
	s.logger.Warn("Register rolled back", "account_id", id)
}

// discardToken consumes token; a failure leaves it to expire on its own.
func (s *Service) discardToken(ctx context.Context, token string) {
	if err := s.tokens.Consume(ctx, token); err != nil {
		s.logger.Warn("confirmation token consume failed", "error", err)
	}
}

func (s *Service) record(ctx context.Context, event ActivityEvent) {
	activityRecorder{sink: s.activitySink, logger: s.logger, now: s.now}.record(ctx, event)
}

func (s *Service) recordLoginFailure(ctx context.Context, accountID, email, reason string) {
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		AccountID: accountID,
		Email:     email,
		Metadata:  map[string]any{"reason": reason},
	})
}

func patchFields(p AccountPatch) []string {
	var fields []string
	if p.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if p.LastName != nil {
		fields = append(fields, "last_name")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	return fields
}
