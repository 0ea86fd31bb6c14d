package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/asset"
	"liquidityPool/internal/chain"
	"liquidityPool/internal/config"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/pool"
)

// withRuntime restores the engine, runs fn and, when mutating, saves the
// resulting snapshot.
func withRuntime(cmd *cobra.Command, mutating bool, fn func(ctx context.Context, rt *runtime) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := fn(ctx, rt); err != nil {
		return err
	}
	if !mutating {
		return nil
	}
	return rt.save(ctx)
}

func signerFlag(cmd *cobra.Command) (ledger.Signer, error) {
	value, _ := cmd.Flags().GetString("as")
	addr, err := config.ParseAddress(value)
	if err != nil {
		return ledger.Signer{}, fmt.Errorf("--as: %w", err)
	}
	return ledger.NewSigner(addr), nil
}

func poolKeyFlag(cmd *cobra.Command) (model.PoolKey, error) {
	value, _ := cmd.Flags().GetString("pool")
	return model.ParsePoolKey(value)
}

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and operate pools",
	}
	poolCmd.PersistentFlags().String("as", "", "address of the acting account")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pool",
		RunE:  runPoolInit,
	}
	initCmd.Flags().String("asset-x", "", "asset X address")
	initCmd.Flags().String("asset-y", "", "asset Y address")
	initCmd.Flags().Uint64("pool-id", 0, "pool id distinguishing pools over the same assets")
	initCmd.Flags().Uint16("fee-bps", 30, "swap fee in basis points")
	initCmd.Flags().String("authority", "", "optional address allowed to lock the pool")
	initCmd.Flags().Bool("verify-assets", false, "check both assets are ERC-20 contracts via --rpc")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit reserves for shares",
		RunE:  runPoolDeposit,
	}
	depositCmd.Flags().Uint64("shares", 0, "shares to mint")
	depositCmd.Flags().Uint64("max-x", 0, "maximum asset X to contribute")
	depositCmd.Flags().Uint64("max-y", 0, "maximum asset Y to contribute")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Redeem shares for reserves",
		RunE:  runPoolWithdraw,
	}
	withdrawCmd.Flags().Uint64("shares", 0, "shares to burn")
	withdrawCmd.Flags().Uint64("min-x", 0, "minimum asset X to receive")
	withdrawCmd.Flags().Uint64("min-y", 0, "minimum asset Y to receive")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one pool asset for the other",
		RunE:  runPoolSwap,
	}
	swapCmd.Flags().String("direction", "x_to_y", "x_to_y or y_to_x")
	swapCmd.Flags().Uint64("amount-in", 0, "input amount")
	swapCmd.Flags().Uint64("min-out", 0, "minimum output amount")

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock a pool (authority only)",
		RunE:  runPoolSetLocked(true),
	}
	unlockCmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock a pool (authority only)",
		RunE:  runPoolSetLocked(false),
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show one pool, or all pools without --pool",
		RunE:  runPoolShow,
	}

	for _, c := range []*cobra.Command{depositCmd, withdrawCmd, swapCmd, lockCmd, unlockCmd, showCmd} {
		c.Flags().String("pool", "", "pool key (assetX-assetY-poolID)")
	}
	poolCmd.AddCommand(initCmd, depositCmd, withdrawCmd, swapCmd, lockCmd, unlockCmd, showCmd)
	return poolCmd
}

func runPoolInit(cmd *cobra.Command, _ []string) error {
	signer, err := signerFlag(cmd)
	if err != nil {
		return err
	}
	assetXFlag, _ := cmd.Flags().GetString("asset-x")
	assetYFlag, _ := cmd.Flags().GetString("asset-y")
	authorityFlag, _ := cmd.Flags().GetString("authority")
	poolID, _ := cmd.Flags().GetUint64("pool-id")
	feeBps, _ := cmd.Flags().GetUint16("fee-bps")
	verify, _ := cmd.Flags().GetBool("verify-assets")

	assetX, err := config.ParseAddress(assetXFlag)
	if err != nil {
		return fmt.Errorf("--asset-x: %w", err)
	}
	assetY, err := config.ParseAddress(assetYFlag)
	if err != nil {
		return fmt.Errorf("--asset-y: %w", err)
	}
	authority, err := config.ParseOptionalAddress(authorityFlag)
	if err != nil {
		return fmt.Errorf("--authority: %w", err)
	}

	return withRuntime(cmd, true, func(ctx context.Context, rt *runtime) error {
		if verify {
			if err := verifyAssets(ctx, rt, assetX, assetY); err != nil {
				return err
			}
		}
		p, err := rt.engine.Initialize(ctx, signer, pool.InitializeParams{
			AssetX:    assetX,
			AssetY:    assetY,
			PoolID:    poolID,
			FeeBps:    feeBps,
			Authority: authority,
		})
		if err != nil {
			return err
		}
		rt.logger.Info("pool initialized",
			zap.String("key", p.Key().String()),
			zap.String("address", p.Address.Hex()),
			zap.String("share_mint", p.ShareMint.Hex()),
		)
		return printJSON(cmd, p)
	})
}

// verifyAssets checks that both assets are deployed ERC-20 contracts.
func verifyAssets(ctx context.Context, rt *runtime, assets ...common.Address) error {
	if rt.cfg.RPCURL == "" {
		return fmt.Errorf("--verify-assets requires --rpc")
	}
	client, err := chain.NewClient(ctx, rt.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	fetcher := asset.NewFetcher(client, asset.FetcherConfig{
		MaxRetries: rt.cfg.MaxRetries,
		RetryDelay: rt.cfg.RetryBackoff,
	}, rt.logger)

	for _, addr := range assets {
		code, err := client.CodeAt(ctx, addr)
		if err != nil {
			return fmt.Errorf("code at %s: %w", addr.Hex(), err)
		}
		if len(code) == 0 {
			return fmt.Errorf("asset %s has no contract code on chain %s", addr.Hex(), chainID)
		}
		meta, err := fetcher.Meta(ctx, addr)
		if err != nil {
			return err
		}
		rt.logger.Info("asset verified",
			zap.String("chain_id", chainID.String()),
			zap.String("asset", meta.Address),
			zap.String("symbol", meta.Symbol),
			zap.Uint8("decimals", meta.Decimals),
		)
	}
	return nil
}

func runPoolDeposit(cmd *cobra.Command, _ []string) error {
	signer, err := signerFlag(cmd)
	if err != nil {
		return err
	}
	key, err := poolKeyFlag(cmd)
	if err != nil {
		return err
	}
	shares, _ := cmd.Flags().GetUint64("shares")
	maxX, _ := cmd.Flags().GetUint64("max-x")
	maxY, _ := cmd.Flags().GetUint64("max-y")

	return withRuntime(cmd, true, func(ctx context.Context, rt *runtime) error {
		res, err := rt.engine.Deposit(ctx, signer, key, pool.DepositParams{Shares: shares, MaxX: maxX, MaxY: maxY})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	})
}

func runPoolWithdraw(cmd *cobra.Command, _ []string) error {
	signer, err := signerFlag(cmd)
	if err != nil {
		return err
	}
	key, err := poolKeyFlag(cmd)
	if err != nil {
		return err
	}
	shares, _ := cmd.Flags().GetUint64("shares")
	minX, _ := cmd.Flags().GetUint64("min-x")
	minY, _ := cmd.Flags().GetUint64("min-y")

	return withRuntime(cmd, true, func(ctx context.Context, rt *runtime) error {
		res, err := rt.engine.Withdraw(ctx, signer, key, pool.WithdrawParams{Shares: shares, MinX: minX, MinY: minY})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	})
}

func runPoolSwap(cmd *cobra.Command, _ []string) error {
	signer, err := signerFlag(cmd)
	if err != nil {
		return err
	}
	key, err := poolKeyFlag(cmd)
	if err != nil {
		return err
	}
	directionFlag, _ := cmd.Flags().GetString("direction")
	direction, err := pool.ParseDirection(directionFlag)
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-out")

	return withRuntime(cmd, true, func(ctx context.Context, rt *runtime) error {
		res, err := rt.engine.Swap(ctx, signer, key, pool.SwapParams{Direction: direction, AmountIn: amountIn, MinOut: minOut})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	})
}

func runPoolSetLocked(locked bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		signer, err := signerFlag(cmd)
		if err != nil {
			return err
		}
		key, err := poolKeyFlag(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, true, func(ctx context.Context, rt *runtime) error {
			if err := rt.engine.SetLocked(ctx, signer, key, locked); err != nil {
				return err
			}
			st, err := rt.engine.State(key)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		})
	}
}

func runPoolShow(cmd *cobra.Command, _ []string) error {
	keyFlag, _ := cmd.Flags().GetString("pool")
	return withRuntime(cmd, false, func(ctx context.Context, rt *runtime) error {
		if keyFlag != "" {
			key, err := model.ParsePoolKey(keyFlag)
			if err != nil {
				return err
			}
			st, err := rt.engine.State(key)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		}
		pools := rt.engine.Pools()
		states := make([]model.PoolState, 0, len(pools))
		for _, p := range pools {
			st, err := rt.engine.State(p.Key())
			if err != nil {
				return err
			}
			states = append(states, st)
		}
		return printJSON(cmd, states)
	})
}
