package service

import "math/big"

// OutcomeKind tags the result of a handled intent. The core never returns
// formatted text: transports render an Outcome however they like.
type OutcomeKind int

const (
	// OutcomeDepositAddress carries the account's deposit address.
	OutcomeDepositAddress OutcomeKind = iota + 1

	// OutcomeNoAccount means the user has never funded an account.
	OutcomeNoAccount

	// OutcomeZeroBalance means there is nothing to withdraw; no session
	// was created.
	OutcomeZeroBalance

	// OutcomeAwaitingDestination means a session was opened and carries
	// the snapshot balance for display.
	OutcomeAwaitingDestination

	// OutcomeSessionBusy rejects a withdraw intent while another
	// withdrawal is in progress; the existing session is untouched.
	OutcomeSessionBusy

	// OutcomeNoSession means destination input arrived with no active
	// session to consume it.
	OutcomeNoSession

	// OutcomeInvalidDestination rejects a malformed destination address;
	// the session is torn down.
	OutcomeInvalidDestination

	// OutcomeWithdrawalSubmitted carries the broadcast transaction id.
	OutcomeWithdrawalSubmitted

	// OutcomeInsufficientFunds means the live balance could not cover
	// the withdrawal and its fees.
	OutcomeInsufficientFunds

	// OutcomeLedgerUnavailable reports a transient ledger fault; the
	// user may retry the whole flow.
	OutcomeLedgerUnavailable

	// OutcomeBalance carries a live balance reading (ops API).
	OutcomeBalance
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDepositAddress:
		return "deposit_address"
	case OutcomeNoAccount:
		return "no_account"
	case OutcomeZeroBalance:
		return "zero_balance"
	case OutcomeAwaitingDestination:
		return "awaiting_destination"
	case OutcomeSessionBusy:
		return "session_busy"
	case OutcomeNoSession:
		return "no_session"
	case OutcomeInvalidDestination:
		return "invalid_destination"
	case OutcomeWithdrawalSubmitted:
		return "withdrawal_submitted"
	case OutcomeInsufficientFunds:
		return "insufficient_funds"
	case OutcomeLedgerUnavailable:
		return "ledger_unavailable"
	case OutcomeBalance:
		return "balance"
	}
	return "unknown"
}

// Outcome is the structured result of one handled intent.
type Outcome struct {
	Kind    OutcomeKind
	Address string   // deposit address
	Balance *big.Int // base units
	Display string   // balance in display units
	TxID    string   // broadcast transaction id
}
