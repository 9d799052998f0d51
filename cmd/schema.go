package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wundergraph/github-graphql-proxy/pkg/gateway"
)

// printSchemaCmd represents the print-schema command
var printSchemaCmd = &cobra.Command{
	Use:     "print-schema",
	Short:   "print-schema introspects the upstream and prints the composed schema to std out",
	Example: "github-graphql-proxy print-schema > github.graphql",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync() // nolint

		composite, err := gateway.Compose(cmd.Context(), cfg, gateway.WithLogger(abstractLogger(logger)))
		if err != nil {
			return err
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), composite.SDL)
		return err
	},
}

func init() {
	rootCmd.AddCommand(printSchemaCmd)
}
