package cmd

import (
	"fmt"
	"os"

	"github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wundergraph/github-graphql-proxy/pkg/config"
	"github.com/wundergraph/github-graphql-proxy/pkg/gateway"
)

var (
	cfgFile        string
	envFile        string
	envExampleFile string

	v = config.NewViper()
)

// rootCmd serves the proxy when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "github-graphql-proxy",
	Short: "github-graphql-proxy serves the GitHub GraphQL API from a local endpoint",
	Long: `github-graphql-proxy introspects the GitHub GraphQL API with the token from GITHUB_TOKEN,
composes the remote schema into a local one and serves it together with a GraphQL Playground.

Variables are read from .env; every variable declared in .env.example must be present.`,
	Example:       "GITHUB_TOKEN=ghp_... github-graphql-proxy --port 4070",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "yaml config file (default none)")
	flags.StringVar(&envFile, "env-file", config.DefaultEnvPath, "env file loaded into the environment")
	flags.StringVar(&envExampleFile, "env-example", config.DefaultEnvExamplePath, "file declaring the required environment variables")
	flags.String("endpoint", config.DefaultEndpoint, "upstream GraphQL endpoint")
	flags.String("host", "", "host to listen on")
	flags.Int("port", config.DefaultPort, "port to listen on")
	flags.Bool("verify-token", false, "query the token owner before introspecting")
	flags.String("log-level", config.DefaultLogLevel, "debug, info, warn or error")
	flags.String("log-format", config.DefaultLogFormat, "console or json")

	if err := config.BindFlags(v, flags); err != nil {
		panic(err)
	}
}

// Execute runs the root command and exits with the code matching the failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

func loadConfig() (config.Config, error) {
	if err := config.ReadConfigFile(v, cfgFile); err != nil {
		return config.Config{}, &gateway.StartupError{Stage: gateway.StageConfiguration, Err: err}
	}

	env := config.DefaultEnvOptions()
	env.Path = envFile
	env.ExamplePath = envExampleFile

	cfg, err := config.NewLoader(v, env)()
	if err != nil {
		return config.Config{}, &gateway.StartupError{Stage: gateway.StageConfiguration, Err: err}
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, &gateway.StartupError{Stage: gateway.StageConfiguration, Err: errors.Wrap(err, "log.level")}
	}

	zapConfig := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}

func abstractLogger(logger *zap.Logger) abstractlogger.Logger {
	return abstractlogger.NewZapLogger(logger, abstractlogger.DebugLevel)
}
