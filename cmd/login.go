// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlueshiftWorks/adgate/pkg/auth"
	"github.com/BlueshiftWorks/adgate/pkg/debug"
	"github.com/BlueshiftWorks/adgate/pkg/directory"
	"github.com/BlueshiftWorks/adgate/pkg/env"
	"github.com/BlueshiftWorks/adgate/pkg/logger"
	"github.com/BlueshiftWorks/adgate/pkg/session"
)

// User-facing messages. Denial deliberately says nothing about whether the
// principal exists; unavailability is a different message so an outage is
// never mistaken for bad credentials.
var (
	errLoginDenied      = errors.New("invalid credentials")
	errLoginUnavailable = errors.New("service temporarily unavailable, try again later")
)

func init() {
	loginCmd.Flags().String("principal", "", "Principal name to authenticate")
	loginCmd.Flags().String("policy", "", "Also evaluate this named policy against the resolved claims")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate a principal and print a session token",
	Long: `Authenticates the given principal against the configured directory,
resolves its claims, and prints a signed session token. The secret is
read from stdin and never appears in arguments or logs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		principal, _ := cmd.Flags().GetString("principal")
		if principal == "" {
			return errors.New("--principal is required")
		}

		secret, err := readSecret(cmd)
		if err != nil {
			return err
		}
		creds := auth.Credentials{Principal: principal, Secret: secret}
		defer creds.Zero()

		client, err := directory.NewClient(cfg.Directory)
		if err != nil {
			return err
		}
		defer client.Close()

		resolver := auth.NewResolver(cfg.GroupRoles)
		metrics := auth.NewMetrics(debug.Registry())
		validator := auth.NewValidator(client, resolver, cfg.Auth, metrics)

		issuerCfg, err := cfg.Session.IssuerConfig(env.IsLocal())
		if err != nil {
			return err
		}
		issuer, err := session.NewIssuer(issuerCfg)
		if err != nil {
			return err
		}

		result := validator.Validate(cmd.Context(), creds.Principal, creds.Secret)
		switch result.Outcome {
		case auth.OutcomeDenied:
			return errLoginDenied
		case auth.OutcomeUnavailable:
			return errLoginUnavailable
		}

		for _, claim := range result.Claims {
			fmt.Printf("%-5s %s\n", claim.Type, claim.Value)
		}

		token, err := issuer.Issue(result.Identity.DN, result.Claims, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(token)

		if policyName, _ := cmd.Flags().GetString("policy"); policyName != "" {
			registry, err := buildPolicyRegistry(cfg)
			if err != nil {
				return err
			}
			decision, err := registry.Authorize(result.Claims, policyName)
			if err != nil {
				logger.Error().Err(err).Str("policy", policyName).Msg("policy evaluation failed")
			}
			fmt.Printf("policy %s: %s\n", policyName, decision)
		}

		return nil
	},
}

// readSecret reads one line from stdin, prompting when stdin is a terminal.
func readSecret(cmd *cobra.Command) (string, error) {
	if info, err := os.Stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
