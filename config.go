package accounts

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// NotificationPolicy decides what Register does when the confirmation
// message cannot be delivered.
type NotificationPolicy string

const (
	// NotificationBestEffort keeps the account and reports the failure as an event.
	NotificationBestEffort NotificationPolicy = "best_effort"
	// NotificationStrict removes the account and fails the registration.
	NotificationStrict NotificationPolicy = "strict"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name     string `env:"NAME" envDefault:"qid" koanf:"name"`
	Domain   string `env:"DOMAIN" envDefault:"localhost" koanf:"domain"`
	Path     string `env:"PATH" envDefault:"/" koanf:"path"`
	Secure   bool   `env:"SECURE" envDefault:"false" koanf:"secure"`
	SameSite string `env:"SAME_SITE" envDefault:"Strict" koanf:"same_site"`
}

func (c CookieConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.SameSite, validation.Required, validation.In("Strict", "Lax", "None", "strict", "lax", "none")),
		validation.Field(&c.Secure, validation.By(func(any) error {
			// browsers drop SameSite=None cookies without Secure
			if strings.EqualFold(c.SameSite, "none") && !c.Secure {
				return errors.New("must be true when same_site is None")
			}
			return nil
		})),
	)
}

// SessionConfig controls session token signing.
type SessionConfig struct {
	SigningKey string        `env:"SIGNING_KEY" koanf:"signing_key"`
	TTL        time.Duration `env:"TTL" envDefault:"24h" koanf:"ttl"`
	Issuer     string        `env:"ISSUER" envDefault:"go-accounts" koanf:"issuer"`
}

func (c SessionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(MinSigningKeyBytes, 0)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// ConfirmationConfig controls confirmation token lifetime and link building.
type ConfirmationConfig struct {
	TTL         time.Duration `env:"TTL" envDefault:"24h" koanf:"ttl"`
	LinkBaseURL string        `env:"LINK_BASE_URL" envDefault:"http://localhost:3000/user/confirm" koanf:"link_base_url"`
	KeyPrefix   string        `env:"KEY_PREFIX" envDefault:"accounts:confirm" koanf:"key_prefix"`
}

func (c ConfirmationConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LinkBaseURL, validation.Required),
		validation.Field(&c.KeyPrefix, validation.Required),
	)
}

// PasswordConfig controls hashing cost.
type PasswordConfig struct {
	Cost int `env:"COST" envDefault:"12" koanf:"cost"`
}

func (c PasswordConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Cost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
	)
}

// RegistrationConfig controls registration side effects.
type RegistrationConfig struct {
	NotificationPolicy NotificationPolicy `env:"NOTIFICATION_POLICY" envDefault:"best_effort" koanf:"notification_policy"`
}

func (c RegistrationConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.NotificationPolicy, validation.In(NotificationBestEffort, NotificationStrict)),
	)
}

// Config holds every tunable of the account service.
type Config struct {
	Cookie       CookieConfig       `envPrefix:"COOKIE_" koanf:"cookie"`
	Session      SessionConfig      `envPrefix:"SESSION_" koanf:"session"`
	Confirmation ConfirmationConfig `envPrefix:"CONFIRMATION_" koanf:"confirmation"`
	Password     PasswordConfig     `envPrefix:"PASSWORD_" koanf:"password"`
	Registration RegistrationConfig `koanf:"registration"`
}

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ACCOUNTS_"

// DefaultConfig returns the defaults without a signing key.
func DefaultConfig() Config {
	return Config{
		Cookie: CookieConfig{
			Name:     "qid",
			Domain:   "localhost",
			Path:     "/",
			SameSite: "Strict",
		},
		Session: SessionConfig{
			TTL:    24 * time.Hour,
			Issuer: "go-accounts",
		},
		Confirmation: ConfirmationConfig{
			TTL:         24 * time.Hour,
			LinkBaseURL: "http://localhost:3000/user/confirm",
			KeyPrefix:   defaultConfirmationKeyPrefix,
		},
		Password: PasswordConfig{
			Cost: passwordHashCost(),
		},
		Registration: RegistrationConfig{
			NotificationPolicy: NotificationBestEffort,
		},
	}
}

// LoadConfigFromEnv reads ACCOUNTS_* variables on top of the defaults.
func LoadConfigFromEnv() (Config, error) {
	return LoadConfigFromEnvironment(nil)
}

// LoadConfigFromEnvironment is LoadConfigFromEnv over an explicit variable
// map. A nil map reads the process environment.
func LoadConfigFromEnvironment(environment map[string]string) (Config, error) {
	cfg := DefaultConfig()
	opts := env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, NewValidationError("invalid environment configuration", map[string]any{
			"error": err.Error(),
		})
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Confirmation.LinkBaseURL = strings.TrimRight(strings.TrimSpace(c.Confirmation.LinkBaseURL), "/")
	c.Confirmation.KeyPrefix = strings.TrimRight(c.Confirmation.KeyPrefix, ":")
	if c.Registration.NotificationPolicy == "" {
		c.Registration.NotificationPolicy = NotificationBestEffort
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Cookie),
		validation.Field(&c.Session),
		validation.Field(&c.Confirmation),
		validation.Field(&c.Password),
		validation.Field(&c.Registration),
	)
	if err != nil {
		return NewValidationError("invalid configuration", map[string]any{
			"errors": err.Error(),
		})
	}
	return nil
}
