package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NetRube/NetRube.Data/dialect"
)

func newDialectCmd() *cobra.Command {
	var driverType, provider string
	cmd := &cobra.Command{
		Use:   "dialect",
		Short: "Resolve the dialect family for a driver type or provider name",
		Example: `  nrdata dialect --driver '*pq.Driver'
  nrdata dialect --provider MySql.Data.MySqlClient`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if driverType == "" && provider == "" {
				return fmt.Errorf("one of --driver or --provider is required")
			}
			family := dialect.ResolveFamily(driverType, provider)
			profile := dialect.ForFamily(family)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "family: %s\n", family)
			fmt.Fprintf(out, "placeholder: %s\n", profile.Placeholder(0))
			fmt.Fprintf(out, "identifier: %s\n", profile.EscapeIdentifier("name"))
			return nil
		},
	}
	cmd.Flags().StringVar(&driverType, "driver", "", "Go driver type, as printed by %T")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name")
	return cmd
}
