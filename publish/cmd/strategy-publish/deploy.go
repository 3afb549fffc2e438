package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
	"github.com/akshaynexus/yearnv2-levgeist/publish/account"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/ens"
	"github.com/akshaynexus/yearnv2-levgeist/publish/prompt"
	"github.com/akshaynexus/yearnv2-levgeist/publish/script"
)

func (a *app) runDeploy(cmd *cobra.Command, args []string) error {
	apiVersion, err := a.cfg.APIVersion()
	if err != nil {
		return err
	}
	network, err := a.cfg.ActiveNetwork()
	if err != nil {
		return err
	}

	key, err := account.Load(account.Source{
		PrivateKey: os.Getenv("PRIVATE_KEY"),
		Keystore:   a.cfg.Account.Keystore,
		Password:   os.Getenv("DEV_PASSWORD"),
	}, account.TerminalPassword(os.Stdin, cmd.ErrOrStderr(), a.cfg.Account.Name))
	if err != nil {
		return fmt.Errorf("load account %q: %w", a.cfg.Account.Name, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := publish.Dial(ctx, network.RPCURL)
	if err != nil {
		return err
	}
	defer chain.Close()
	chain.ReceiptTimeout = time.Duration(a.cfg.Deploy.TimeoutSeconds) * time.Second

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return err
	}
	if int64(chainID) != network.ChainID {
		return fmt.Errorf("network %q expects chain id %d, node reports %d", a.cfg.Network, network.ChainID, chainID)
	}

	deployer := publish.NewDeployer(chain, network.ChainID, key, network.GasFeeCap.Value(), network.GasTipCap.Value())
	a.logger.Debug("deployer ready",
		zap.String("network", a.cfg.Network),
		zap.Uint64("chain_id", chainID),
		zap.String("address", deployer.Address().Hex()),
		zap.String("api_version", apiVersion),
	)

	env := script.Env{
		Network:     a.cfg.Network,
		AccountName: a.cfg.Account.Name,
		APIVersion:  apiVersion,
		Deploy:      a.cfg.Deploy,
		Artifacts:   a.cfg.Artifacts,
		Chain:       chain,
		Sender:      deployer,
		Prompt:      prompt.New(cmd.InOrStdin(), cmd.OutOrStdout()),
		Log:         a.logger,
	}
	if common.IsHexAddress(a.cfg.Deploy.ENSRegistry) {
		env.Resolver = ens.NewResolver(chain, common.HexToAddress(a.cfg.Deploy.ENSRegistry))
	}

	report, err := script.Run(ctx, env)
	if err != nil {
		a.logger.Error("deployment failed", zap.Error(err))
		return err
	}
	a.logger.Info("deployment complete", zap.String("vault", report.Vault), zap.String("strategy", report.Strategy))
	return nil
}
