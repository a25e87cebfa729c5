package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-accounts"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// runtimeConfig covers the process level wiring the service does not own.
type runtimeConfig struct {
	DatabaseDSN string `env:"DB_DSN" envDefault:"file:accounts.db?cache=shared" koanf:"database_dsn"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379" koanf:"redis_addr"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0" koanf:"redis_db"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":3000" koanf:"http_addr"`
	AuditLog    string `env:"AUDIT_LOG" koanf:"audit_log"`
}

type fileConfig struct {
	Accounts accounts.Config `koanf:"accounts"`
	Runtime  runtimeConfig   `koanf:"runtime"`
}

// loadConfig reads ACCOUNTS_* variables, then overlays the YAML file at
// path when one is given.
func loadConfig(path string, environment map[string]string) (fileConfig, error) {
	var out fileConfig

	cfg, err := accounts.LoadConfigFromEnvironment(environment)
	if err != nil {
		return out, err
	}
	out.Accounts = cfg

	opts := env.Options{Prefix: accounts.EnvPrefix, Environment: environment}
	if err := env.ParseWithOptions(&out.Runtime, opts); err != nil {
		return out, fmt.Errorf("runtime config: %w", err)
	}

	if path == "" {
		return out, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return out, fmt.Errorf("load config file %s: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return out, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return out, nil
}
