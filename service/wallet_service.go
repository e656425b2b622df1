package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/custody_bot/ledger"
	"github.com/custody_bot/repository"
	"github.com/custody_bot/session"
)

// WalletService drives the deposit and withdrawal use cases over the
// account store, the ledger backend and the session registry. Access to a
// user's account and session is serialized by a per-user lock; different
// users proceed independently. Arrival order within one user is the
// transport adapter's responsibility.
type WalletService struct {
	accounts      *repository.AccountRepository
	ledger        ledger.Client
	sessions      *session.Registry
	log           *slog.Logger
	submitTimeout time.Duration

	userLocks sync.Map // int64 -> *sync.Mutex
}

func NewWalletService(accounts *repository.AccountRepository, lc ledger.Client, sessions *session.Registry, log *slog.Logger, submitTimeout time.Duration) *WalletService {
	if submitTimeout <= 0 {
		submitTimeout = 30 * time.Second
	}
	return &WalletService{
		accounts:      accounts,
		ledger:        lc,
		sessions:      sessions,
		log:           log,
		submitTimeout: submitTimeout,
	}
}

func (s *WalletService) lockUser(userID int64) func() {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HasActiveSession reports whether free text from userID should be routed
// to SubmitDestination.
func (s *WalletService) HasActiveSession(userID int64) bool {
	_, ok := s.sessions.Active(userID)
	return ok
}

// Deposit returns the user's deposit address, creating the account with
// fresh key material on first use. Idempotent: repeat calls return the
// same address.
func (s *WalletService) Deposit(ctx context.Context, userID int64) (Outcome, error) {
	defer s.lockUser(userID)()

	acct, err := s.accounts.GetOrCreate(ctx, userID, s.ledger.Chain(), s.ledger)
	if err != nil {
		return Outcome{}, err
	}
	s.log.Info("deposit address resolved", "user_id", userID, "address", acct.Address)
	return Outcome{Kind: OutcomeDepositAddress, Address: acct.Address}, nil
}

// Withdraw opens a withdrawal session if the user has an account with a
// positive balance.
func (s *WalletService) Withdraw(ctx context.Context, userID int64) (Outcome, error) {
	defer s.lockUser(userID)()

	acct, err := s.accounts.Get(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return Outcome{Kind: OutcomeNoAccount}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	if _, active := s.sessions.Active(userID); active {
		s.log.Warn("withdraw rejected, session already active", "user_id", userID)
		return Outcome{Kind: OutcomeSessionBusy}, nil
	}

	balance, err := s.ledger.QueryBalance(ctx, acct.Address)
	if err != nil {
		s.log.Error("balance query failed", "user_id", userID, "err", err)
		return Outcome{Kind: OutcomeLedgerUnavailable}, nil
	}
	if balance.Sign() == 0 {
		return Outcome{Kind: OutcomeZeroBalance}, nil
	}

	if _, err := s.sessions.Begin(userID, balance); err != nil {
		return Outcome{Kind: OutcomeSessionBusy}, nil
	}
	s.log.Info("withdrawal session opened", "user_id", userID, "balance", balance.String())
	return Outcome{
		Kind:    OutcomeAwaitingDestination,
		Balance: balance,
		Display: ledger.FormatAmount(balance, s.ledger.Decimals()),
	}, nil
}

// SubmitDestination consumes the destination address for the user's
// active session, re-queries the live balance and submits the withdrawal.
// The session is torn down on every terminal path, success or failure; a
// later withdraw intent starts fresh.
func (s *WalletService) SubmitDestination(ctx context.Context, userID int64, text string) (Outcome, error) {
	defer s.lockUser(userID)()

	sess, ok := s.sessions.Active(userID)
	if !ok {
		return Outcome{Kind: OutcomeNoSession}, nil
	}

	destination := strings.TrimSpace(text)
	if destination == "" || s.ledger.ValidateAddress(destination) != nil {
		sess.Fail()
		s.sessions.End(userID)
		return Outcome{Kind: OutcomeInvalidDestination}, nil
	}
	if err := sess.AttachDestination(destination); err != nil {
		sess.Fail()
		s.sessions.End(userID)
		return Outcome{}, err
	}

	acct, err := s.accounts.Get(ctx, userID)
	if err != nil {
		sess.Fail()
		s.sessions.End(userID)
		return Outcome{}, err
	}

	// The snapshot taken when the session opened may be stale by now;
	// the submitted amount is always the live balance.
	live, err := s.ledger.QueryBalance(ctx, acct.Address)
	if err != nil {
		sess.Fail()
		s.sessions.End(userID)
		s.log.Error("balance re-check failed", "user_id", userID, "err", err)
		return Outcome{Kind: OutcomeLedgerUnavailable}, nil
	}
	if live.Sign() == 0 {
		sess.Fail()
		s.sessions.End(userID)
		return Outcome{Kind: OutcomeZeroBalance}, nil
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()
	txID, err := s.ledger.SubmitWithdrawal(submitCtx, acct.Mnemonic, destination, live)
	if err != nil {
		sess.Fail()
		s.sessions.End(userID)
		s.log.Error("withdrawal failed", "user_id", userID, "session_id", sess.ID, "err", err)
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return Outcome{Kind: OutcomeInsufficientFunds}, nil
		case errors.Is(err, ledger.ErrInvalidDestination):
			return Outcome{Kind: OutcomeInvalidDestination}, nil
		default:
			return Outcome{Kind: OutcomeLedgerUnavailable}, nil
		}
	}

	if err := sess.Complete(); err != nil {
		s.log.Error("session completion out of order", "user_id", userID, "err", err)
	}
	s.sessions.End(userID)
	s.log.Info("withdrawal submitted",
		"user_id", userID, "session_id", sess.ID, "amount", live.String(), "tx_id", txID)
	return Outcome{
		Kind:    OutcomeWithdrawalSubmitted,
		Balance: live,
		Display: ledger.FormatAmount(live, s.ledger.Decimals()),
		TxID:    txID,
	}, nil
}

// Address looks up the user's deposit address. Unlike Deposit it never
// creates an account.
func (s *WalletService) Address(ctx context.Context, userID int64) (Outcome, error) {
	acct, err := s.accounts.Get(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return Outcome{Kind: OutcomeNoAccount}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeDepositAddress, Address: acct.Address}, nil
}

// Balance reads the user's live balance without touching session state.
func (s *WalletService) Balance(ctx context.Context, userID int64) (Outcome, error) {
	acct, err := s.accounts.Get(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return Outcome{Kind: OutcomeNoAccount}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	balance, err := s.ledger.QueryBalance(ctx, acct.Address)
	if err != nil {
		return Outcome{Kind: OutcomeLedgerUnavailable}, nil
	}
	return Outcome{
		Kind:    OutcomeBalance,
		Address: acct.Address,
		Balance: balance,
		Display: ledger.FormatAmount(balance, s.ledger.Decimals()),
	}, nil
}
