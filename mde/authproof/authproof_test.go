package authproof

import (
	"crypto/rand"
	"encoding/binary"
	"testing"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/stretchr/testify/require"
)

func buildProof(t *testing.T, ts uint64, corruptSig bool) []byte {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signed := make([]byte, 0, len(pub)+8)
	signed = append(signed, pub...)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], ts)
	signed = append(signed, tsBuf[:]...)

	sig := ed25519.Sign(priv, signed)
	if corruptSig {
		sig[0] ^= 0xFF
	}

	buf := make([]byte, 0, 1+len(sig)+len(pub)+8)
	buf = append(buf, byte(AlgorithmEd25519))
	buf = append(buf, sig...)
	buf = append(buf, pub...)
	buf = append(buf, tsBuf[:]...)
	return buf
}

func TestParseValidBuffer(t *testing.T) {
	now := time.Now()
	buf := buildProof(t, uint64(now.Unix()), false)

	p, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, AlgorithmEd25519, p.Algorithm)
	require.Len(t, p.Signature, 64)
	require.Len(t, p.PublicKey, 32)
}

func TestParseRejectsWrongLength(t *testing.T) {
	_, err := Parse([]byte{0, 1, 2, 3})
	require.Error(t, err)
}

func TestParseRejectsUnknownAlgorithm(t *testing.T) {
	buf := buildProof(t, uint64(time.Now().Unix()), false)
	buf[0] = 7
	_, err := Parse(buf)
	require.Error(t, err)
}

func TestParseRejectsEmptyBuffer(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
}

func TestVerifySucceedsWithinSkewWindow(t *testing.T) {
	now := time.Now()
	buf := buildProof(t, uint64(now.Unix()), false)

	p, err := Parse(buf)
	require.NoError(t, err)
	ok, err := p.Verify(now)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyAllowsSymmetricSkewUpToFiveSeconds(t *testing.T) {
	ts := time.Now().Add(-5 * time.Second)
	buf := buildProof(t, uint64(ts.Unix()), false)

	p, err := Parse(buf)
	require.NoError(t, err)
	ok, err := p.Verify(time.Now())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	ts := time.Now().Add(-30 * time.Second)
	buf := buildProof(t, uint64(ts.Unix()), false)

	p, err := Parse(buf)
	require.NoError(t, err)
	ok, err := p.Verify(time.Now())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsFutureTimestamp(t *testing.T) {
	ts := time.Now().Add(30 * time.Second)
	buf := buildProof(t, uint64(ts.Unix()), false)

	p, err := Parse(buf)
	require.NoError(t, err)
	ok, err := p.Verify(time.Now())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	now := time.Now()
	buf := buildProof(t, uint64(now.Unix()), true)

	p, err := Parse(buf)
	require.NoError(t, err)
	ok, err := p.Verify(now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseAndVerifyConvenienceWrapper(t *testing.T) {
	now := time.Now()
	buf := buildProof(t, uint64(now.Unix()), false)

	_, ok, err := ParseAndVerify(buf, now)
	require.NoError(t, err)
	require.True(t, ok)
}
