package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountsRepository is the bun backed AccountDirectory.
type AccountsRepository struct {
	repo repository.Repository[*Account]
	db   *bun.DB
	now  func() time.Time
}

var _ AccountDirectory = (*AccountsRepository)(nil)

// AccountsRepositoryOption configures an AccountsRepository.
type AccountsRepositoryOption func(*AccountsRepository)

// WithAccountsRepositoryClock overrides the clock used for timestamps.
func WithAccountsRepositoryClock(now func() time.Time) AccountsRepositoryOption {
	return func(r *AccountsRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewAccountsRepository returns a directory over db.
func NewAccountsRepository(db *bun.DB, opts ...AccountsRepositoryOption) *AccountsRepository {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	r := &AccountsRepository{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// CreateAccountsTable creates the accounts table when missing. Development
// and test convenience only.
func CreateAccountsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *AccountsRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, NewNotFoundError("account not found")
	}

	record := &Account{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.mapReadError(err, map[string]any{"email": email})
	}
	return record, nil
}

func (r *AccountsRepository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return nil, NewNotFoundError("account not found")
	}

	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, r.mapReadError(err, map[string]any{"id": id.String()})
	}
	return record, nil
}

// List returns every account ordered by creation time.
func (r *AccountsRepository) List(ctx context.Context) ([]*Account, error) {
	var records []*Account
	err := r.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.email ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*Account{}, nil
		}
		return nil, NewDependencyError(err, "failed to list accounts")
	}
	if records == nil {
		records = []*Account{}
	}
	return records, nil
}

// Create inserts account. A duplicate email yields a Conflict error.
func (r *AccountsRepository) Create(ctx context.Context, account *Account) (*Account, error) {
	if account == nil {
		return nil, NewValidationError("account is required")
	}

	now := r.now().UTC()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Email = NormalizeEmail(account.Email)
	account.CreatedAt = &now
	account.UpdatedAt = &now

	if _, err := r.db.NewInsert().Model(account).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, NewConflictError("email already registered", map[string]any{
				"email": account.Email,
			})
		}
		return nil, NewDependencyError(err, "failed to create account")
	}
	return r.FindByID(ctx, account.ID)
}

// UpdateFields applies the non nil fields of patch.
func (r *AccountsRepository) UpdateFields(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	q := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("updated_at = ?", r.now().UTC())

	if patch.FirstName != nil {
		q = q.Set("first_name = ?", *patch.FirstName)
	}
	if patch.LastName != nil {
		q = q.Set("last_name = ?", *patch.LastName)
	}
	if patch.Email != nil {
		q = q.Set("email = ?", NormalizeEmail(*patch.Email))
	}

	res, err := q.Where("id = ?", id).Exec(ctx)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, NewConflictError("email already registered")
		}
		return nil, NewDependencyError(err, "failed to update account")
	}
	if err := requireAffected(res, id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// SetConfirmed marks the account confirmed at the given time.
func (r *AccountsRepository) SetConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (*Account, error) {
	at = at.UTC()
	res, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("confirmed = ?", true).
		Set("confirmed_at = ?", at).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, NewDependencyError(err, "failed to confirm account")
	}
	if err := requireAffected(res, id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *AccountsRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return NewDependencyError(err, "failed to update password")
	}
	return requireAffected(res, id)
}

// DeleteByID removes the account and returns the removed record.
func (r *AccountsRepository) DeleteByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := r.db.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, NewDependencyError(err, "failed to delete account")
	}
	if err := requireAffected(res, id); err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *AccountsRepository) mapReadError(err error, metadata map[string]any) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return NewNotFoundError("account not found", metadata)
	}
	return NewDependencyError(err, "failed to read account")
}

func requireAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return NewDependencyError(err, "failed to read affected rows")
	}
	if n == 0 {
		return NewNotFoundError("account not found", map[string]any{"id": id.String()})
	}
	return nil
}
