package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/config"
)

func newFundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit an account with an external asset",
		RunE:  runFund,
	}
	cmd.Flags().String("owner", "", "account to credit")
	cmd.Flags().String("asset", "", "asset address")
	cmd.Flags().Uint64("amount", 0, "amount in base units")
	return cmd
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an account balance",
		RunE:  runBalance,
	}
	cmd.Flags().String("owner", "", "account")
	cmd.Flags().String("asset", "", "asset or share mint address")
	return cmd
}

type balanceOutput struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
	Supply  uint64 `json:"supply"`
}

func runFund(cmd *cobra.Command, _ []string) error {
	ownerFlag, _ := cmd.Flags().GetString("owner")
	assetFlag, _ := cmd.Flags().GetString("asset")
	amount, _ := cmd.Flags().GetUint64("amount")
	owner, err := config.ParseAddress(ownerFlag)
	if err != nil {
		return fmt.Errorf("--owner: %w", err)
	}
	asset, err := config.ParseAddress(assetFlag)
	if err != nil {
		return fmt.Errorf("--asset: %w", err)
	}

	return withRuntime(cmd, true, func(ctx context.Context, rt *runtime) error {
		l := rt.engine.Ledger()
		if err := l.Fund(owner, asset, amount); err != nil {
			return err
		}
		rt.logger.Info("account funded",
			zap.String("owner", owner.Hex()),
			zap.String("asset", asset.Hex()),
			zap.Uint64("amount", amount),
		)
		return printJSON(cmd, balanceOutput{
			Owner:   owner.Hex(),
			Asset:   asset.Hex(),
			Balance: l.Balance(owner, asset),
			Supply:  l.Supply(asset),
		})
	})
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ownerFlag, _ := cmd.Flags().GetString("owner")
	assetFlag, _ := cmd.Flags().GetString("asset")
	owner, err := config.ParseAddress(ownerFlag)
	if err != nil {
		return fmt.Errorf("--owner: %w", err)
	}
	asset, err := config.ParseAddress(assetFlag)
	if err != nil {
		return fmt.Errorf("--asset: %w", err)
	}

	return withRuntime(cmd, false, func(ctx context.Context, rt *runtime) error {
		l := rt.engine.Ledger()
		return printJSON(cmd, balanceOutput{
			Owner:   owner.Hex(),
			Asset:   asset.Hex(),
			Balance: l.Balance(owner, asset),
			Supply:  l.Supply(asset),
		})
	})
}
