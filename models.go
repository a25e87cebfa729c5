package accounts

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusUnconfirmed AccountStatus = "unconfirmed"
	AccountStatusConfirmed   AccountStatus = "confirmed"
	// AccountStatusDeleted is terminal; the record no longer exists.
	AccountStatusDeleted AccountStatus = "deleted"
)

// Account is the account record
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Confirmed     bool       `bun:"confirmed,notnull,default:false" json:"confirmed"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name"`
	LastName      string     `bun:"last_name,notnull" json:"last_name"`
	ConfirmedAt   *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Status derives the lifecycle state from the stored record.
func (a *Account) Status() AccountStatus {
	if a == nil {
		return AccountStatusDeleted
	}
	if a.Confirmed {
		return AccountStatusConfirmed
	}
	return AccountStatusUnconfirmed
}

// IsConfirmed reports whether the email has been confirmed.
func (a *Account) IsConfirmed() bool {
	return a != nil && a.Confirmed
}

// sanitized returns a copy without the password hash.
func (a *Account) sanitized() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.PasswordHash = ""
	return &c
}

// AccountPatch is a partial update. Nil fields are left untouched.
type AccountPatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil
}

// Validate checks the fields that are present.
func (p AccountPatch) Validate() error {
	return validation.Errors{
		"first_name": validatePresent(p.FirstName, validation.Required, validation.Length(1, 200)),
		"last_name":  validatePresent(p.LastName, validation.Required, validation.Length(1, 200)),
		"email":      validatePresent(p.Email, validation.Required, validation.Length(3, 254), is.Email),
	}.Filter()
}

// validatePresent applies rules to *value only when the field was sent.
func validatePresent(value *string, rules ...validation.Rule) error {
	if value == nil {
		return nil
	}
	return validation.Validate(*value, rules...)
}

// RegisterAccountMessage carries the registration input.
type RegisterAccountMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate will validate the payload
func (r RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPasswordBytes)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
	)
}

// NormalizeEmail applies the case policy: trimmed and lower cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
