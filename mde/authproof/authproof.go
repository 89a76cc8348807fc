// Package authproof parses and verifies the fixed-layout signed-timestamp
// credential mailbox owners present to gate reads and deletes.
package authproof

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
)

// Algorithm identifies the signature scheme used in an AuthProof.
type Algorithm uint8

const (
	// AlgorithmEd25519 is the only currently defined algorithm tag.
	AlgorithmEd25519 Algorithm = 0
)

const (
	ed25519SigLen = ed25519.SignatureSize
	ed25519KeyLen = ed25519.PublicKeySize

	// MaxSkew bounds how far a proof's embedded timestamp may drift from
	// the verifier's clock in either direction.
	MaxSkew = 5 * time.Second
)

// Proof is a parsed, not-yet-verified AuthProof.
type Proof struct {
	Algorithm Algorithm
	Signature []byte
	PublicKey []byte
	Timestamp uint64
}

// Parse decodes buffer into a Proof. The only defined algorithm is
// Ed25519 (tag 0), giving a fixed total length of 1+64+32+8 = 105 bytes.
func Parse(buffer []byte) (*Proof, error) {
	if len(buffer) == 0 {
		return nil, fmt.Errorf("authproof: empty buffer")
	}

	algo := Algorithm(buffer[0])
	sigLen, keyLen, err := lengthsFor(algo)
	if err != nil {
		return nil, err
	}

	want := 1 + sigLen + keyLen + 8
	if len(buffer) != want {
		return nil, fmt.Errorf("authproof: expected %d bytes, got %d", want, len(buffer))
	}

	sig := buffer[1 : 1+sigLen]
	key := buffer[1+sigLen : 1+sigLen+keyLen]
	ts := binary.BigEndian.Uint64(buffer[1+sigLen+keyLen:])

	return &Proof{
		Algorithm: algo,
		Signature: append([]byte(nil), sig...),
		PublicKey: append([]byte(nil), key...),
		Timestamp: ts,
	}, nil
}

func lengthsFor(algo Algorithm) (sigLen, keyLen int, err error) {
	switch algo {
	case AlgorithmEd25519:
		return ed25519SigLen, ed25519KeyLen, nil
	default:
		return 0, 0, fmt.Errorf("authproof: unknown algorithm tag %d", algo)
	}
}

// Verify checks the proof against now: the embedded timestamp must fall
// within MaxSkew of now, and the signature must be a strict, non-malleable
// Ed25519 signature over PublicKey || big-endian(Timestamp). It reports
// (false, nil) for a bad signature or a stale timestamp, and returns a
// non-nil error only when the public key bytes cannot possibly be a valid
// Ed25519 point (wrong length).
func (p *Proof) Verify(now time.Time) (bool, error) {
	if len(p.PublicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("authproof: invalid public key length %d", len(p.PublicKey))
	}

	skew := now.Unix() - int64(p.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(MaxSkew/time.Second) {
		return false, nil
	}

	signed := make([]byte, 0, len(p.PublicKey)+8)
	signed = append(signed, p.PublicKey...)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], p.Timestamp)
	signed = append(signed, tsBuf[:]...)

	ok := ed25519.Verify(ed25519.PublicKey(p.PublicKey), signed, p.Signature)
	return ok, nil
}

// ParseAndVerify is a convenience wrapper combining Parse and Verify against
// the current time, as used by mde/httpapi's AuthProof-gated handlers.
func ParseAndVerify(buffer []byte, now time.Time) (*Proof, bool, error) {
	proof, err := Parse(buffer)
	if err != nil {
		return nil, false, err
	}
	ok, err := proof.Verify(now)
	if err != nil {
		return proof, false, err
	}
	return proof, ok, nil
}
