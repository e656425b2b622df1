package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// BitcoinClient is the UTXO-model backend, talking to a bitcoind-compatible
// node over JSON-RPC. Balances are satoshi.
type BitcoinClient struct {
	client  *rpcclient.Client
	params  *chaincfg.Params
	feeSats int64
}

type BitcoinConfig struct {
	RPCHost string
	RPCUser string
	RPCPass string
	Network string // mainnet, testnet3, regtest, simnet
	FeeSats int64  // flat fee carved out of each withdrawal
}

func NewBitcoinClient(cfg BitcoinConfig) (*BitcoinClient, error) {
	params, err := netParams(cfg.Network)
	if err != nil {
		return nil, err
	}
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect bitcoin rpc: %w", err)
	}
	fee := cfg.FeeSats
	if fee <= 0 {
		fee = 10000
	}
	return &BitcoinClient{client: client, params: params, feeSats: fee}, nil
}

func netParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	}
	return nil, fmt.Errorf("unknown bitcoin network %q", network)
}

func (c *BitcoinClient) Chain() string { return "bitcoin" }

func (c *BitcoinClient) Decimals() int { return 8 }

func (c *BitcoinClient) GenerateKey() (string, error) {
	return newMnemonic()
}

func (c *BitcoinClient) DeriveAddress(mnemonic string) (string, error) {
	priv, err := derivePrivKey(mnemonic, coinTypeBitcoin)
	if err != nil {
		return "", err
	}
	hash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(hash, c.params)
	if err != nil {
		return "", fmt.Errorf("build p2pkh address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

func (c *BitcoinClient) ValidateAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, c.params)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDestination, address)
	}
	if !addr.IsForNet(c.params) {
		return fmt.Errorf("%w: %s is for a different network", ErrInvalidDestination, address)
	}
	return nil
}

// rpcclient calls are not context-aware, so each one runs under a bounded
// wait tied to the caller's context.
func (c *BitcoinClient) run(ctx context.Context, op func() error) error {
	done := make(chan error, 1)
	go func() { done <- op() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, ctx.Err())
	}
}

func (c *BitcoinClient) listUnspent(ctx context.Context, address string) ([]unspent, error) {
	addr, err := btcutil.DecodeAddress(address, c.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDestination, address)
	}
	var utxos []unspent
	err = c.run(ctx, func() error {
		results, err := c.client.ListUnspentMinMaxAddresses(1, 9999999, []btcutil.Address{addr})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		for _, r := range results {
			amt, err := btcutil.NewAmount(r.Amount)
			if err != nil {
				return fmt.Errorf("parse utxo amount %f: %w", r.Amount, err)
			}
			utxos = append(utxos, unspent{
				txid:     r.TxID,
				vout:     r.Vout,
				sats:     int64(amt),
				pkScript: r.ScriptPubKey,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return utxos, nil
}

type unspent struct {
	txid     string
	vout     uint32
	sats     int64
	pkScript string
}

func (c *BitcoinClient) QueryBalance(ctx context.Context, address string) (*big.Int, error) {
	utxos, err := c.listUnspent(ctx, address)
	if err != nil {
		return nil, err
	}
	total := int64(0)
	for _, u := range utxos {
		total += u.sats
	}
	return big.NewInt(total), nil
}

// SubmitWithdrawal spends the account's UTXOs into a single output to
// destination. The flat fee is carved out of amount; anything above amount
// returns to the account's own address as change.
func (c *BitcoinClient) SubmitWithdrawal(ctx context.Context, mnemonic, destination string, amount *big.Int) (string, error) {
	if err := c.ValidateAddress(destination); err != nil {
		return "", err
	}
	priv, err := derivePrivKey(mnemonic, coinTypeBitcoin)
	if err != nil {
		return "", fmt.Errorf("derive signing key: %w", err)
	}
	ownAddress, err := c.DeriveAddress(mnemonic)
	if err != nil {
		return "", err
	}

	utxos, err := c.listUnspent(ctx, ownAddress)
	if err != nil {
		return "", err
	}
	totalIn := int64(0)
	for _, u := range utxos {
		totalIn += u.sats
	}
	if !amount.IsInt64() || amount.Int64() > totalIn {
		return "", fmt.Errorf("%w: have %d sat, want %s", ErrInsufficientFunds, totalIn, amount)
	}
	value := amount.Int64() - c.feeSats
	if value <= 0 {
		return "", fmt.Errorf("%w: %s sat does not cover the %d sat fee", ErrInsufficientFunds, amount, c.feeSats)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, u := range utxos {
		hash, err := chainhash.NewHashFromStr(u.txid)
		if err != nil {
			return "", fmt.Errorf("parse utxo txid %s: %w", u.txid, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.vout), nil, nil))
	}

	destAddr, _ := btcutil.DecodeAddress(destination, c.params)
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return "", fmt.Errorf("build destination script: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(value, destScript))

	if change := totalIn - amount.Int64(); change > 0 {
		ownAddr, _ := btcutil.DecodeAddress(ownAddress, c.params)
		changeScript, err := txscript.PayToAddrScript(ownAddr)
		if err != nil {
			return "", fmt.Errorf("build change script: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(change, changeScript))
	}

	for i, u := range utxos {
		subscript, err := hex.DecodeString(u.pkScript)
		if err != nil {
			return "", fmt.Errorf("decode utxo script: %w", err)
		}
		sig, err := txscript.SignatureScript(tx, i, subscript, txscript.SigHashAll, priv, true)
		if err != nil {
			return "", fmt.Errorf("sign input %d: %w", i, err)
		}
		tx.TxIn[i].SignatureScript = sig
	}

	var txHash *chainhash.Hash
	err = c.run(ctx, func() error {
		hash, err := c.client.SendRawTransaction(tx, false)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		txHash = hash
		return nil
	})
	if err != nil {
		return "", err
	}
	return txHash.String(), nil
}
