package telegram

import (
	"fmt"

	"github.com/custody_bot/service"
)

// Render maps a wallet outcome to user-facing text. Returns "" for
// outcomes that should not produce a message.
func Render(out service.Outcome) string {
	switch out.Kind {
	case service.OutcomeDepositAddress:
		return fmt.Sprintf("Your deposit address: %s", out.Address)
	case service.OutcomeNoAccount:
		return "Fund your account first."
	case service.OutcomeZeroBalance:
		return "Your balance is zero."
	case service.OutcomeAwaitingDestination:
		return fmt.Sprintf("Your current balance: %s\nEnter the destination address:", out.Display)
	case service.OutcomeSessionBusy:
		return "A withdrawal is already in progress. Send the destination address or wait for it to finish."
	case service.OutcomeInvalidDestination:
		return "That does not look like a valid address. The withdrawal was cancelled, start again with /start."
	case service.OutcomeWithdrawalSubmitted:
		return fmt.Sprintf("Funds sent!\nTx: %s", out.TxID)
	case service.OutcomeInsufficientFunds:
		return "Balance is too low to cover the withdrawal and network fees."
	case service.OutcomeLedgerUnavailable:
		return "The network is unavailable right now, please try again later."
	case service.OutcomeBalance:
		return fmt.Sprintf("Your balance: %s", out.Display)
	case service.OutcomeNoSession:
		return ""
	}
	return ""
}
