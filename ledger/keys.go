package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// BIP-44 coin types for the supported chains.
const (
	coinTypeBitcoin  = 0
	coinTypeEthereum = 60
)

// newMnemonic generates a fresh 24-word BIP-39 mnemonic. The mnemonic is
// the account's key material: everything else is derived from it.
func newMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// derivePrivKey walks the BIP-44 path m/44'/coinType'/0'/0/0 from the
// mnemonic's seed. Deterministic, no network access.
func derivePrivKey(mnemonic string, coinType uint32) (*btcec.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	key := master
	for _, index := range []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	} {
		if key, err = key.Derive(index); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", index, err)
		}
	}
	return key.ECPrivKey()
}
