// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlueshiftWorks/adgate/pkg/session"
)

func init() {
	tokenCmd.Flags().String("policy", "", "Also evaluate this named policy against the token's claims")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token <session-token>",
	Short: "Validate a session token and print its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		issuerCfg, err := cfg.Session.IssuerConfig(false)
		if err != nil {
			return err
		}
		issuer, err := session.NewIssuer(issuerCfg)
		if err != nil {
			return err
		}

		sess, err := issuer.Validate(args[0], time.Now())
		switch {
		case errors.Is(err, session.ErrExpired):
			return errors.New("session token has expired, sign in again")
		case err != nil:
			return errors.New("session token is invalid")
		}

		fmt.Printf("subject: %s\n", sess.Subject)
		fmt.Printf("issued:  %s\n", sess.IssuedAt.Format(time.RFC3339))
		fmt.Printf("expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))
		for _, claim := range sess.Claims {
			fmt.Printf("%-5s %s\n", claim.Type, claim.Value)
		}

		if policyName, _ := cmd.Flags().GetString("policy"); policyName != "" {
			registry, err := buildPolicyRegistry(cfg)
			if err != nil {
				return err
			}
			decision, _ := registry.Authorize(sess.Claims, policyName)
			fmt.Printf("policy %s: %s\n", policyName, decision)
		}

		return nil
	},
}
