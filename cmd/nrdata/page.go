package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NetRube/NetRube.Data/dialect"
)

func newPageCmd() *cobra.Command {
	var family string
	var skip, take int64
	cmd := &cobra.Command{
		Use:   "page SQL [ARGS...]",
		Short: "Print the paged form of a SELECT for a dialect",
		Example: `  nrdata page --dialect sqlserver --skip 20 --take 10 \
    "SELECT id, name FROM people WHERE age > @0 ORDER BY name" 18`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := dialect.ParseFamily(family)
			if !ok && family != "ansi" {
				return fmt.Errorf("unknown dialect %q", family)
			}
			if take <= 0 {
				return fmt.Errorf("--take must be positive")
			}

			parts, err := dialect.SplitSQL(args[0])
			if err != nil {
				return err
			}
			params := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				params = append(params, a)
			}
			q, params, err := dialect.ForFamily(f).BuildPageQuery(skip, take, parts, params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, q)
			fmt.Fprintln(out, "--")
			fmt.Fprintln(out, parts.SQLCount)
			for i, p := range params {
				fmt.Fprintf(out, "@%d = %v\n", i, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&family, "dialect", "ansi", "Dialect family or provider name")
	cmd.Flags().Int64Var(&skip, "skip", 0, "Rows to skip")
	cmd.Flags().Int64Var(&take, "take", 10, "Rows to take")
	return cmd
}
