package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// PrivateKey is an ed25519 authority key pair. Authority keys are generated
// locally, never leave the process until used to sign, and are scoped to one
// pipeline run unless the operator explicitly re-supplies them.
type PrivateKey struct {
	priv ed25519.PrivateKey
}

// PublicKey is the on-ledger half of an authority key.
type PublicKey struct {
	pub ed25519.PublicKey
}

// GeneratePrivateKey returns a fresh authority key pair.
func GeneratePrivateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("generate authority key: %w", err)
	}
	return PrivateKey{priv: priv}, nil
}

// ParsePrivateKey decodes the hex seed form produced by String. An optional
// "302e..."-style DER prefix from external tooling is tolerated by taking the
// trailing 32 bytes.
func ParsePrivateKey(s string) (PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PrivateKey{}, fmt.Errorf("empty private key string")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) > ed25519.SeedSize {
		raw = raw[len(raw)-ed25519.SeedSize:]
	}
	if len(raw) != ed25519.SeedSize {
		return PrivateKey{}, fmt.Errorf("private key seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	return PrivateKey{priv: ed25519.NewKeyFromSeed(raw)}, nil
}

func (k PrivateKey) Empty() bool {
	return len(k.priv) == 0
}

func (k PrivateKey) PublicKey() PublicKey {
	if k.Empty() {
		return PublicKey{}
	}
	return PublicKey{pub: k.priv.Public().(ed25519.PublicKey)}
}

// SignBytes signs msg with the authority key.
func (k PrivateKey) SignBytes(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// String returns the hex seed form accepted by ParsePrivateKey.
func (k PrivateKey) String() string {
	if k.Empty() {
		return ""
	}
	return hex.EncodeToString(k.priv.Seed())
}

func (p PublicKey) Empty() bool {
	return len(p.pub) == 0
}

func (p PublicKey) Verify(msg, sig []byte) bool {
	if p.Empty() {
		return false
	}
	return ed25519.Verify(p.pub, msg, sig)
}

func (p PublicKey) String() string {
	return hex.EncodeToString(p.pub)
}

// Equal reports whether two public keys are the same key.
func (p PublicKey) Equal(other PublicKey) bool {
	return p.String() == other.String()
}
