// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BlueshiftWorks/adgate/pkg/auth"
	"github.com/BlueshiftWorks/adgate/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "adgate",
	Short: "AdGate - directory-backed authentication and session issuance",
	Long: `AdGate authenticates users against an LDAP/Active Directory server,
maps their group memberships onto role claims, and issues signed
session tokens that downstream services validate and authorize against
named policies.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML configuration file")
}

// loadConfig reads and validates the configuration for a command run.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildPolicyRegistry registers the built-in Administrator policy plus one
// require-role policy per role named in the group mapping.
func buildPolicyRegistry(cfg config.Config) (*auth.PolicyRegistry, error) {
	policies := []auth.Policy{auth.AdministratorPolicy()}
	seen := map[string]bool{auth.RoleAdministrator: true}
	for _, role := range cfg.GroupRoles {
		if seen[role] {
			continue
		}
		seen[role] = true
		policies = append(policies, auth.RequireRole(role, role))
	}
	return auth.NewPolicyRegistry(policies...)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
