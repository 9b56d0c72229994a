// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	assert.Equal(t, "(uid=%s)", cfg.Directory.UserFilter)
	assert.Equal(t, 10*time.Second, cfg.Directory.Timeout)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "adgate", cfg.Session.Issuer)
	assert.Equal(t, 1, cfg.Auth.RetryLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Auth.RetryBackoff)
	assert.Empty(t, cfg.GroupRoles)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "adgate.toml")
	content := `
[directory]
url = "ldaps://dc01.corp.example.com:636"
base_dn = "dc=corp,dc=example,dc=com"
user_filter = "(sAMAccountName=%s)"
username_attr = "sAMAccountName"
timeout = "5s"

[session]
signing_key = "c2lnbmluZy1rZXktc2lnbmluZy1rZXktMzItYnl0ZXM="
ttl = "4h"

[auth]
retry_limit = 2
retry_backoff = "250ms"

[group_roles]
"cn=sysadmins,ou=groups,dc=corp,dc=example,dc=com" = "Administrator"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ldaps://dc01.corp.example.com:636", cfg.Directory.URL)
	assert.Equal(t, "dc=corp,dc=example,dc=com", cfg.Directory.BaseDN)
	assert.Equal(t, "(sAMAccountName=%s)", cfg.Directory.UserFilter)
	assert.Equal(t, "sAMAccountName", cfg.Directory.UsernameAttr)
	assert.Equal(t, 5*time.Second, cfg.Directory.Timeout)
	assert.Equal(t, 4*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 2, cfg.Auth.RetryLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Auth.RetryBackoff)
	assert.Equal(t, "Administrator", cfg.GroupRoles["cn=sysadmins,ou=groups,dc=corp,dc=example,dc=com"])

	// Values the file does not set keep their defaults.
	assert.Equal(t, "memberOf", cfg.Directory.GroupAttr)
	assert.Equal(t, "adgate", cfg.Session.Issuer)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Default()
	valid.Directory.URL = "ldap://localhost:389"
	valid.Directory.BaseDN = "dc=example,dc=com"
	valid.Session.SigningKey = base64.StdEncoding.EncodeToString(make([]byte, 32))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing url", mutate: func(c *Config) { c.Directory.URL = "" }, wantErr: true},
		{name: "missing base dn", mutate: func(c *Config) { c.Directory.BaseDN = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Directory.Timeout = 0 }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSessionSettings_IssuerConfig(t *testing.T) {
	t.Parallel()

	t.Run("decodes base64 key", func(t *testing.T) {
		t.Parallel()
		raw := make([]byte, 32)
		settings := SessionSettings{
			SigningKey: base64.StdEncoding.EncodeToString(raw),
			TTL:        time.Hour,
		}
		cfg, err := settings.IssuerConfig(false)
		require.NoError(t, err)
		assert.Equal(t, raw, cfg.SigningKey)
	})

	t.Run("rejects non-base64 key", func(t *testing.T) {
		t.Parallel()
		settings := SessionSettings{SigningKey: "not base64!!", TTL: time.Hour}
		_, err := settings.IssuerConfig(false)
		assert.Error(t, err)
	})

	t.Run("missing key without ephemeral fails", func(t *testing.T) {
		t.Parallel()
		settings := SessionSettings{TTL: time.Hour}
		_, err := settings.IssuerConfig(false)
		assert.Error(t, err)
	})

	t.Run("missing key with ephemeral generates one", func(t *testing.T) {
		t.Parallel()
		settings := SessionSettings{TTL: time.Hour}
		cfg, err := settings.IssuerConfig(true)
		require.NoError(t, err)
		assert.Len(t, cfg.SigningKey, 32)
	})
}
