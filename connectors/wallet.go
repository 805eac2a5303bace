package connectors

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WalletSigner is a wallet that can prove control of its address.
type WalletSigner interface {
	Address(ctx context.Context) (string, error)
	PublicKey() string
	SignMessage(ctx context.Context, message string) (string, error)
}

// KeyWallet is a local ed25519 wallet. The address is the first 20 bytes of
// the SHA-256 of the public key, hex encoded with a 0x prefix.
type KeyWallet struct {
	priv ed25519.PrivateKey
}

// NewKeyWallet loads a wallet from a 32-byte hex seed.
func NewKeyWallet(seedHex string) (*KeyWallet, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &KeyWallet{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// WalletAddress derives the address for an ed25519 public key.
func WalletAddress(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "0x" + hex.EncodeToString(sum[:20])
}

func (w *KeyWallet) Address(ctx context.Context) (string, error) {
	return WalletAddress(w.priv.Public().(ed25519.PublicKey)), nil
}

func (w *KeyWallet) PublicKey() string {
	return hex.EncodeToString(w.priv.Public().(ed25519.PublicKey))
}

func (w *KeyWallet) SignMessage(ctx context.Context, message string) (string, error) {
	return hex.EncodeToString(ed25519.Sign(w.priv, []byte(message))), nil
}

var ErrBadSignature = errors.New("wallet signature does not match")

// VerifyWalletSignature checks that publicKey owns address and signed message.
func VerifyWalletSignature(address, publicKey, message, signature string) error {
	pub, err := hex.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: malformed public key", ErrBadSignature)
	}
	if !strings.EqualFold(WalletAddress(pub), address) {
		return fmt.Errorf("%w: public key is not for %s", ErrBadSignature, address)
	}
	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}
	if !ed25519.Verify(pub, []byte(message), sig) {
		return ErrBadSignature
	}
	return nil
}

// ParseWalletLoginMessage reads back the address and time WalletLoginMessage wrote.
func ParseWalletLoginMessage(message string) (string, time.Time, error) {
	var address, issued string
	for _, line := range strings.Split(message, "\n") {
		if v, ok := strings.CutPrefix(line, "address: "); ok {
			address = v
		}
		if v, ok := strings.CutPrefix(line, "issued: "); ok {
			issued = v
		}
	}
	at, err := time.Parse(time.RFC3339, issued)
	if address == "" || err != nil {
		return "", time.Time{}, errors.New("malformed login message")
	}
	return address, at, nil
}
