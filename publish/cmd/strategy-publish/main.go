package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akshaynexus/yearnv2-levgeist/publish/config"
	"github.com/akshaynexus/yearnv2-levgeist/publish/logging"
)

type app struct {
	configPath string
	network    string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "strategy-publish",
		Short:         "Deploy the Geist leveraged lending strategy and link it to a Yearn vault",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.network != "" {
				cfg.UseNetwork(a.network)
			}
			a.cfg = cfg

			a.logger, err = logging.New(cfg.Logging)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config")
	root.PersistentFlags().StringVar(&a.network, "network", "", "network entry to use (default from config)")

	root.AddCommand(&cobra.Command{
		Use:   "deploy",
		Short: "Deploy or attach to a vault, deploy or attach to a strategy, and link them",
		Long: `Walks through the deployment interactively:

  1. reuse an existing vault, create an experimental one through the registry,
     or deploy and initialize a new one
  2. deploy AaveUtils and the Strategy, or attach to a deployed Strategy
  3. add the strategy to the vault and set the deposit limit

PRIVATE_KEY overrides the account keystore. DEV_PASSWORD supplies the
keystore password, otherwise it is read from the terminal.`,
		Args: cobra.NoArgs,
		RunE: a.runDeploy,
	})
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
