// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package directory speaks LDAP to a directory server (OpenLDAP, Active
// Directory) and reduces its many failure modes to a closed outcome set.
// No go-ldap vocabulary escapes this package: callers see either a found
// identity, ErrInvalidCredentials, ErrUserNotFound, or ErrUnavailable.
package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Directory outcome errors. Credential rejection and transport failure are
// deliberately distinct: conflating them would let an outage masquerade as
// a denial (or the reverse).
var (
	// ErrInvalidCredentials is returned when the directory rejects a bind.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when no entry matches the principal.
	ErrUserNotFound = errors.New("user not found in directory")

	// ErrUnavailable is returned for network, TLS, and timeout failures.
	ErrUnavailable = errors.New("directory unavailable")
)

// Identity is the directory's view of an authenticated principal.
// It lives for the duration of one authentication attempt and is never
// cached by this package.
type Identity struct {
	// DN is the entry's distinguished name.
	DN string

	// Username is the value of the configured username attribute.
	Username string

	// DisplayName is the value of the configured display-name attribute,
	// empty when the entry carries none.
	DisplayName string

	// Attributes holds the raw requested attributes.
	Attributes map[string][]string

	// Groups holds the DNs of groups the entry is a member of.
	Groups []string
}

// Config holds LDAP connection and attribute configuration
type Config struct {
	// Server settings
	URL        string        `mapstructure:"url"`         // ldap://localhost:389 or ldaps://localhost:636
	BindDN     string        `mapstructure:"bind_dn"`     // service account for user lookups
	BindPass   string        `mapstructure:"bind_pass"`   // service account password
	BaseDN     string        `mapstructure:"base_dn"`     // dc=example,dc=com
	UserFilter string        `mapstructure:"user_filter"` // (uid=%s) or (sAMAccountName=%s)
	StartTLS   bool          `mapstructure:"start_tls"`   // Use StartTLS for connection upgrade
	Timeout    time.Duration `mapstructure:"timeout"`     // Per-connection timeout
	TLS        *tls.Config   `mapstructure:"-"`           // Optional TLS config

	// Attribute mapping
	UsernameAttr    string `mapstructure:"username_attr"`     // uid, sAMAccountName, cn
	DisplayNameAttr string `mapstructure:"display_name_attr"` // displayName
	GroupAttr       string `mapstructure:"group_attr"`        // memberOf

	// Connection pool settings (service-account lookups only; user binds
	// always use a fresh connection)
	PoolSize int `mapstructure:"pool_size"`
}

// DefaultConfig returns sensible defaults for an OpenLDAP deployment.
// Active Directory deployments typically override UserFilter to
// (sAMAccountName=%s) and UsernameAttr to sAMAccountName.
func DefaultConfig() Config {
	return Config{
		UserFilter:      "(uid=%s)",
		Timeout:         10 * time.Second,
		UsernameAttr:    "uid",
		DisplayNameAttr: "displayName",
		GroupAttr:       "memberOf",
		PoolSize:        5,
	}
}

// Client performs scoped binds and group lookups against one directory
// server. Safe for concurrent use.
type Client struct {
	config Config

	// Pool of service-account connections for entry lookups
	pool     chan *ldap.Conn
	poolSize int
}

// NewClient creates a directory client. It validates the configuration but
// does not touch the network; use Ping to probe connectivity.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("directory server URL is required")
	}
	if config.BaseDN == "" {
		return nil, errors.New("directory base DN is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.UserFilter == "" {
		config.UserFilter = "(uid=%s)"
	}
	if config.UsernameAttr == "" {
		config.UsernameAttr = "uid"
	}
	if config.DisplayNameAttr == "" {
		config.DisplayNameAttr = "displayName"
	}
	if config.GroupAttr == "" {
		config.GroupAttr = "memberOf"
	}
	if config.PoolSize <= 0 {
		config.PoolSize = 5
	}

	return &Client{
		config:   config,
		pool:     make(chan *ldap.Conn, config.PoolSize),
		poolSize: config.PoolSize,
	}, nil
}

// Ping verifies that the server is reachable and, when a service account is
// configured, that it can bind.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return nil
}

// SearchUser looks up the entry for username and returns its identity,
// including group membership from the configured group attribute. The
// search runs on a pooled service-account connection.
func (c *Client) SearchUser(ctx context.Context, username string) (*Identity, error) {
	conn, err := c.getConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer c.returnConnection(conn)

	// Build search filter with proper escaping
	filter := fmt.Sprintf(c.config.UserFilter, ldap.EscapeFilter(username))

	attributes := []string{c.config.UsernameAttr, c.config.DisplayNameAttr, c.config.GroupAttr}

	req := ldap.NewSearchRequest(
		c.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1,                                 // SizeLimit: only need 1 result
		int(c.config.Timeout/time.Second), // TimeLimit
		false,                             // TypesOnly
		filter,
		attributes,
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return nil, classify(err)
	}

	if len(result.Entries) == 0 {
		return nil, ErrUserNotFound
	}

	entry := result.Entries[0]
	identity := &Identity{
		DN:          entry.DN,
		Username:    entry.GetAttributeValue(c.config.UsernameAttr),
		DisplayName: entry.GetAttributeValue(c.config.DisplayNameAttr),
		Groups:      entry.GetAttributeValues(c.config.GroupAttr),
		Attributes:  make(map[string][]string, len(attributes)),
	}
	for _, attr := range attributes {
		if vals := entry.GetAttributeValues(attr); len(vals) > 0 {
			identity.Attributes[attr] = vals
		}
	}

	return identity, nil
}

// Authenticate verifies username/secret with a user bind. The entry is
// located first with the service account, then a fresh connection binds as
// the user; that connection is closed on every exit path and never pooled.
func (c *Client) Authenticate(ctx context.Context, username, secret string) (*Identity, error) {
	identity, err := c.SearchUser(ctx, username)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialRaw(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Bind(identity.DN, secret); err != nil {
		return nil, classify(err)
	}

	return identity, nil
}

// Close closes all pooled connections
func (c *Client) Close() error {
	close(c.pool)
	for conn := range c.pool {
		conn.Close()
	}
	return nil
}

// dialRaw opens a connection with TLS/StartTLS applied but no bind.
func (c *Client) dialRaw(ctx context.Context) (*ldap.Conn, error) {
	timeout, err := c.effectiveTimeout(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(c.config.URL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, classify(err)
	}
	conn.SetTimeout(timeout)

	// Apply StartTLS if configured and not already using ldaps://
	if c.config.StartTLS && !strings.HasPrefix(c.config.URL, "ldaps://") {
		tlsConfig := c.config.TLS
		if tlsConfig == nil {
			tlsConfig = &tls.Config{InsecureSkipVerify: false}
		}
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, classify(err)
		}
	}

	return conn, nil
}

// dial opens a connection and binds the service account if one is configured.
func (c *Client) dial(ctx context.Context) (*ldap.Conn, error) {
	conn, err := c.dialRaw(ctx)
	if err != nil {
		return nil, err
	}

	if c.config.BindDN != "" {
		if err := conn.Bind(c.config.BindDN, c.config.BindPass); err != nil {
			conn.Close()
			return nil, classify(err)
		}
	}

	return conn, nil
}

// getConnection gets a service-account connection from the pool or creates
// a new one
func (c *Client) getConnection(ctx context.Context) (*ldap.Conn, error) {
	select {
	case conn := <-c.pool:
		if conn.IsClosing() {
			return c.dial(ctx)
		}
		return conn, nil
	default:
		return c.dial(ctx)
	}
}

// returnConnection returns a connection to the pool
func (c *Client) returnConnection(conn *ldap.Conn) {
	if conn == nil || conn.IsClosing() {
		return
	}
	select {
	case c.pool <- conn:
		// Returned to pool
	default:
		// Pool is full, close connection
		conn.Close()
	}
}

// effectiveTimeout bounds the configured timeout by the caller's deadline
// so a cancelled caller is never left waiting on the network.
func (c *Client) effectiveTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	timeout := c.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, context.DeadlineExceeded)
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

// classify maps a go-ldap error onto the package's closed outcome set.
// Result codes in the authentication family (48-50) mean the directory
// processed the request and said no; everything else is a transport or
// server failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultInappropriateAuthentication) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultInsufficientAccessRights) {
		return ErrInvalidCredentials
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
