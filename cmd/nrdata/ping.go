package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NetRube/NetRube.Data/connector"
)

func newPingCmd() *cobra.Command {
	var configPath, driver, dsn string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect with a configuration and check the connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logger := newLogger(verbose)
			defer func() { _ = logger.Sync() }()

			cfg, err := connector.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if driver != "" {
				cfg.Driver = driver
			}
			if dsn != "" {
				cfg.DSN = dsn
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := connector.Connect(ctx, *cfg, connector.WithLogger(logger))
			if err != nil {
				return err
			}
			defer conn.Close()

			start := time.Now()
			if err := conn.Health(ctx); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			stats := conn.Stats()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver: %s\n", conn.Driver())
			fmt.Fprintf(out, "family: %s\n", conn.Family())
			fmt.Fprintf(out, "ping: %s\n", time.Since(start).Round(time.Microsecond))
			fmt.Fprintf(out, "open connections: %d (in use %d, idle %d)\n", stats.OpenConnections, stats.InUse, stats.Idle)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML, JSON or TOML)")
	cmd.Flags().StringVar(&driver, "driver", "", "Override the configured driver")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Override the configured connection string")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall timeout")
	return cmd
}
