package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewJWTTokenizer(key)
}

func TestMintVerifyRoundtrip(t *testing.T) {
	tk := newTokenizer(t)

	token, err := tk.MintDownloadToken("session-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sessionID, err := tk.VerifyDownloadToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	tk := newTokenizer(t)

	token, err := tk.MintDownloadToken("session-1", -time.Minute)
	require.NoError(t, err)

	_, err = tk.VerifyDownloadToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	tk := newTokenizer(t)

	_, err := tk.VerifyDownloadToken("not.a.jwt")
	assert.Error(t, err)
}

func TestTokenFromAnotherKeyIsRejected(t *testing.T) {
	minter := newTokenizer(t)
	verifier := newTokenizer(t)

	token, err := minter.MintDownloadToken("session-1", time.Hour)
	require.NoError(t, err)

	_, err = verifier.VerifyDownloadToken(token)
	assert.Error(t, err)
}
