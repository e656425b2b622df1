package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
)

var (
	// ErrLedgerUnavailable marks a transient network or node failure,
	// distinct from a legitimately zero balance.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrInsufficientFunds is returned when the requested amount cannot
	// be covered by the account, fees included.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidDestination is returned for a destination address that
	// does not parse for the backend's chain.
	ErrInvalidDestination = errors.New("invalid destination address")
)

// Client is the capability set a chain backend must provide. Balances and
// amounts are exact integers in the chain's base unit (wei, satoshi);
// conversion to display units happens only at presentation time via
// FormatAmount and Decimals.
//
// DeriveAddress is pure and deterministic: the same mnemonic always yields
// the same address, with no network call.
type Client interface {
	Chain() string
	Decimals() int

	GenerateKey() (string, error)
	DeriveAddress(mnemonic string) (string, error)
	ValidateAddress(address string) error

	QueryBalance(ctx context.Context, address string) (*big.Int, error)

	// SubmitWithdrawal constructs, signs and broadcasts a transfer of
	// amount from the account controlled by mnemonic to destination.
	// Either the broadcast succeeds and a transaction id is returned, or
	// nothing is sent.
	SubmitWithdrawal(ctx context.Context, mnemonic, destination string, amount *big.Int) (string, error)
}

// FormatAmount renders a base-unit amount in display units, trimming
// trailing zeros ("500000000" with 9 decimals -> "0.5").
func FormatAmount(amount *big.Int, decimals int) string {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	s := new(big.Rat).SetFrac(amount, exp).FloatString(decimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
