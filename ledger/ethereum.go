package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const ethTransferGas = uint64(21000)

// EthereumClient is the account-model backend. Balances are wei.
type EthereumClient struct {
	client  *ethclient.Client
	chainID *big.Int
}

func NewEthereumClient(rpcURL string, chainID int64) (*EthereumClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	id := big.NewInt(chainID)
	if chainID == 0 {
		id, err = client.NetworkID(context.Background())
		if err != nil {
			return nil, fmt.Errorf("query network id: %w", err)
		}
	}
	return &EthereumClient{client: client, chainID: id}, nil
}

func (c *EthereumClient) Chain() string { return "ethereum" }

func (c *EthereumClient) Decimals() int { return 18 }

func (c *EthereumClient) GenerateKey() (string, error) {
	return newMnemonic()
}

func (c *EthereumClient) DeriveAddress(mnemonic string) (string, error) {
	priv, err := derivePrivKey(mnemonic, coinTypeEthereum)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(priv.ToECDSA().PublicKey).Hex(), nil
}

func (c *EthereumClient) ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %s", ErrInvalidDestination, address)
	}
	return nil
}

func (c *EthereumClient) QueryBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDestination, address)
	}
	balance, err := c.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return balance, nil
}

// SubmitWithdrawal sweeps amount to destination. Gas for the transfer is
// carved out of amount, so submitting the full live balance is valid; an
// amount that does not cover gas fails with ErrInsufficientFunds before
// anything is broadcast.
func (c *EthereumClient) SubmitWithdrawal(ctx context.Context, mnemonic, destination string, amount *big.Int) (string, error) {
	if err := c.ValidateAddress(destination); err != nil {
		return "", err
	}
	priv, err := derivePrivKey(mnemonic, coinTypeEthereum)
	if err != nil {
		return "", fmt.Errorf("derive signing key: %w", err)
	}
	key := priv.ToECDSA()
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(ethTransferGas))
	value := new(big.Int).Sub(amount, gasCost)
	if value.Sign() <= 0 {
		return "", fmt.Errorf("%w: %s wei does not cover gas %s", ErrInsufficientFunds, amount, gasCost)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(destination), value, ethTransferGas, gasPrice, nil)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		if strings.Contains(err.Error(), "insufficient funds") {
			return "", fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return "", fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return signedTx.Hash().Hex(), nil
}
