// Package wallet is a single-key wallet that owns an enterprise address and
// builds, funds and signs metadata-carrying transactions for it.
package wallet

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/pbkdf2"
)

// ErrIncorrectImportString is returned when the recovery phrase cannot be used
var ErrIncorrectImportString = errors.New("wallet import string is not a valid BIP-39 mnemonic")

// Network selects the address discriminator and prefix
type Network string

const (
	Mainnet Network = "mainnet"
	Preprod Network = "preprod"
	Preview Network = "preview"
)

const (
	keyDerivationRounds = 4096

	// enterprise address: payment key hash, no stake part
	enterpriseHeader = 0x60
)

func (n Network) id() byte {
	if n == Mainnet {
		return 1
	}
	return 0
}

func (n Network) hrp() string {
	if n == Mainnet {
		return "addr"
	}
	return "addr_test"
}

// Wallet holds the signing key derived from a recovery phrase
type Wallet struct {
	network      Network
	privateKey   ed25519.PrivateKey
	publicKey    ed25519.PublicKey
	addressBytes []byte
	address      string
}

// New derives the wallet from a BIP-39 mnemonic
func New(mnemonic string, network Network) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrIncorrectImportString
	}

	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncorrectImportString, err)
	}

	seed := pbkdf2.Key(nil, entropy, keyDerivationRounds, ed25519.SeedSize, sha512.New)
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)

	keyHash, err := blake2b.New(28, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key hasher: %w", err)
	}
	keyHash.Write(publicKey)

	addressBytes := append([]byte{enterpriseHeader | network.id()}, keyHash.Sum(nil)...)
	address, err := encodeAddress(network.hrp(), addressBytes)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		network:      network,
		privateKey:   privateKey,
		publicKey:    publicKey,
		addressBytes: addressBytes,
		address:      address,
	}, nil
}

// Address returns the bech32 address funds must be sent to
func (w *Wallet) Address() string {
	return w.address
}

// Network returns the network the address belongs to
func (w *Wallet) Network() Network {
	return w.network
}

func encodeAddress(hrp string, raw []byte) (string, error) {
	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	address, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return address, nil
}

// DecodeAddress returns the raw bytes of a bech32 address
func DecodeAddress(address string) ([]byte, error) {
	_, data, err := bech32.DecodeNoLimit(address)
	if err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert address bits: %w", err)
	}
	return raw, nil
}
