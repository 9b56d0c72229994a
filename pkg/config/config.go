// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package config is the settings provider for the authentication core:
// directory connection parameters, session signing material, retry policy,
// and the group-to-role mapping table. Configuration is loaded once at
// startup and treated as immutable afterward.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/BlueshiftWorks/adgate/pkg/auth"
	"github.com/BlueshiftWorks/adgate/pkg/directory"
	"github.com/BlueshiftWorks/adgate/pkg/env"
	"github.com/BlueshiftWorks/adgate/pkg/session"
)

// SessionSettings is the serializable form of session.Config.
type SessionSettings struct {
	// SigningKey is the base64-encoded HMAC key. Required outside local
	// development; in local mode an ephemeral key is generated instead.
	SigningKey string `mapstructure:"signing_key"`

	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

// IssuerConfig decodes the settings into a session.Config. When no key is
// configured and allowEphemeral is true, a random key is generated; such
// sessions do not survive a process restart.
func (s SessionSettings) IssuerConfig(allowEphemeral bool) (session.Config, error) {
	cfg := session.Config{
		TTL:    s.TTL,
		Issuer: s.Issuer,
	}

	switch {
	case s.SigningKey != "":
		key, err := base64.StdEncoding.DecodeString(s.SigningKey)
		if err != nil {
			return cfg, fmt.Errorf("session signing_key must be base64 encoded: %w", err)
		}
		cfg.SigningKey = key
	case allowEphemeral:
		key, err := session.GenerateKey()
		if err != nil {
			return cfg, fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		cfg.SigningKey = key
	default:
		return cfg, errors.New("session signing_key is required")
	}

	return cfg, nil
}

// Config is the full configuration surface.
//
// Example TOML:
//
//	[directory]
//	url = "ldaps://dc01.corp.example.com:636"
//	bind_dn = "cn=svc-adgate,ou=service,dc=corp,dc=example,dc=com"
//	bind_pass = "..."
//	base_dn = "dc=corp,dc=example,dc=com"
//	user_filter = "(sAMAccountName=%s)"
//	username_attr = "sAMAccountName"
//	timeout = "10s"
//
//	[session]
//	signing_key = "bWFrZSB0aGlzIGEgcmVhbCAzMi1ieXRlIGtleSEhIQ=="
//	ttl = "8h"
//
//	[auth]
//	retry_limit = 1
//	retry_backoff = "500ms"
//
//	[group_roles]
//	"cn=sysadmins,ou=groups,dc=corp,dc=example,dc=com" = "Administrator"
//	"cn=staff,ou=groups,dc=corp,dc=example,dc=com" = "Viewer"
type Config struct {
	Directory directory.Config     `mapstructure:"directory"`
	Session   SessionSettings      `mapstructure:"session"`
	Auth      auth.ValidatorConfig `mapstructure:"auth"`

	// GroupRoles maps group DNs to role names for claim resolution.
	GroupRoles map[string]string `mapstructure:"group_roles"`

	// DebugAddr, when set, serves /metrics and health probes.
	DebugAddr string `mapstructure:"debug_addr"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Directory: directory.DefaultConfig(),
		Session: SessionSettings{
			TTL:    8 * time.Hour,
			Issuer: "adgate",
		},
		Auth:       auth.DefaultValidatorConfig(),
		GroupRoles: map[string]string{},
	}
}

// Load reads configuration from the given file (TOML) with ADGATE_*
// environment overrides. An empty path loads defaults plus environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for startup-blocking problems.
func (c Config) Validate() error {
	if c.Directory.URL == "" {
		return errors.New("directory.url is required")
	}
	if c.Directory.BaseDN == "" {
		return errors.New("directory.base_dn is required")
	}
	if c.Directory.Timeout <= 0 {
		return errors.New("directory.timeout must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Session.SigningKey == "" && !env.IsLocal() {
		return errors.New("session.signing_key is required outside local environment")
	}
	return nil
}
