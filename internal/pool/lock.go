package pool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/events"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// SetLocked locks or unlocks a pool. Only the recorded authority may do so;
// pools created without an authority can never be locked.
func (e *Engine) SetLocked(ctx context.Context, signer ledger.Signer, key model.PoolKey, locked bool) (err error) {
	defer e.track("set_locked", time.Now(), &err)

	ent, err := e.lookup(key)
	if err != nil {
		return err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	if ent.pool.Authority == nil {
		return fmt.Errorf("%w: pool %s has no authority", ErrUnauthorized, key)
	}
	if *ent.pool.Authority != signer.Address() {
		return fmt.Errorf("%w: %s is not the pool authority", ErrUnauthorized, signer.Address().Hex())
	}
	if ent.pool.Locked == locked {
		return nil
	}

	ent.pool.Locked = locked
	e.logger.Info("pool lock changed", zap.String("pool", key.String()), zap.Bool("locked", locked))
	e.emit(ctx, events.LockChanged{Pool: ent.pool.Address, Authority: signer.Address(), Locked: locked})
	return nil
}
