package service

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/custody_bot/ledger"
	"github.com/custody_bot/repository"
)

// NotifyFunc is invoked when an account's balance increased since the
// last poll. delta is the increase in base units.
type NotifyFunc func(userID int64, delta *big.Int, display string)

// DepositWatcher polls every account's live balance and fires the notify
// callback on increases. Last-seen balances are held in memory, so the
// first poll after startup only establishes the baseline.
type DepositWatcher struct {
	accounts *repository.AccountRepository
	ledger   ledger.Client
	interval time.Duration
	notify   NotifyFunc
	log      *slog.Logger

	seen map[int64]*big.Int
}

func NewDepositWatcher(accounts *repository.AccountRepository, lc ledger.Client, interval time.Duration, notify NotifyFunc, log *slog.Logger) *DepositWatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DepositWatcher{
		accounts: accounts,
		ledger:   lc,
		interval: interval,
		notify:   notify,
		log:      log,
		seen:     make(map[int64]*big.Int),
	}
}

// Start runs the poll loop until ctx is cancelled.
func (w *DepositWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info("deposit watcher started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("deposit watcher stopped")
			return
		case <-ticker.C:
			w.ScanOnce(ctx)
		}
	}
}

// ScanOnce polls each account once. Ledger faults are logged and skipped;
// the next tick retries.
func (w *DepositWatcher) ScanOnce(ctx context.Context) {
	accounts, err := w.accounts.List(ctx, w.ledger.Chain())
	if err != nil {
		w.log.Error("deposit scan: list accounts", "err", err)
		return
	}
	for _, acct := range accounts {
		balance, err := w.ledger.QueryBalance(ctx, acct.Address)
		if err != nil {
			w.log.Warn("deposit scan: balance query failed", "user_id", acct.UserID, "err", err)
			continue
		}
		last, known := w.seen[acct.UserID]
		w.seen[acct.UserID] = balance
		if !known || balance.Cmp(last) <= 0 {
			continue
		}
		delta := new(big.Int).Sub(balance, last)
		w.log.Info("deposit detected", "user_id", acct.UserID, "delta", delta.String())
		if w.notify != nil {
			w.notify(acct.UserID, delta, ledger.FormatAmount(delta, w.ledger.Decimals()))
		}
	}
}
