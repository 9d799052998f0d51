package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wundergraph/github-graphql-proxy/pkg/config"
	"github.com/wundergraph/github-graphql-proxy/pkg/gateway"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "starts the proxy, this is the default command",
	Example: "github-graphql-proxy serve --host 0.0.0.0",
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := gateway.Start(ctx, config.Static(cfg), gateway.WithLogger(abstractLogger(logger)))
	if err != nil {
		return err
	}

	return g.Wait()
}
