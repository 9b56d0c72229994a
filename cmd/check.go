// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlueshiftWorks/adgate/pkg/debug"
	"github.com/BlueshiftWorks/adgate/pkg/directory"
	"github.com/BlueshiftWorks/adgate/pkg/logger"
	"github.com/BlueshiftWorks/adgate/pkg/utils"
)

func init() {
	checkCmd.Flags().String("url", "", "Directory server URL (overrides config)")
	checkCmd.Flags().String("base_dn", "", "Directory base DN (overrides config)")
	checkCmd.Flags().Duration("watch", 0, "Re-probe at this interval instead of exiting")
	checkCmd.Flags().String("debug_addr", "", "Serve /metrics and health probes on this address while watching")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe directory connectivity and the service-account bind",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		loader := NewFlagLoader(cmd)
		if v := loader.String("url"); v != "" {
			cfg.Directory.URL = v
		}
		if v := loader.String("base_dn"); v != "" {
			cfg.Directory.BaseDN = v
		}

		client, err := directory.NewClient(cfg.Directory)
		if err != nil {
			return err
		}
		defer client.Close()

		watch := loader.Duration("watch")
		if watch <= 0 {
			return probe(client, cfg.Directory.Timeout)
		}

		if addr := loader.String("debug_addr"); addr != "" {
			debug.Serve(addr)
		} else if cfg.DebugAddr != "" {
			debug.Serve(cfg.DebugAddr)
		}

		// Jittered so a fleet of watchers doesn't probe in lockstep.
		ticks, stop := utils.JitteredTicker(watch, 0.1)
		defer stop()

		probeAndReport(client, cfg.Directory.Timeout)
		for range ticks {
			probeAndReport(client, cfg.Directory.Timeout)
		}
		return nil
	},
}

func probe(client *directory.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("directory probe failed: %w", err)
	}
	fmt.Println("directory reachable, service bind ok")
	return nil
}

func probeAndReport(client *directory.Client, timeout time.Duration) {
	if err := probe(client, timeout); err != nil {
		debug.SetNotReady()
		logger.Error().Err(err).Msg("directory probe failed")
		return
	}
	debug.SetReady()
}
