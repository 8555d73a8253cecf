package tokenizer

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pairgate/pairgate/core"
	"github.com/pairgate/pairgate/ports"
)

// AudienceDownload scopes tokens to the credential-archive download
// endpoint; a token minted here is good for nothing else.
const AudienceDownload = "pairing:download"

// DownloadClaims are the registered claims plus nothing: the session id
// rides in the subject.
type DownloadClaims struct {
	jwt.RegisteredClaims
}

// JWTTokenizer mints and verifies ES256 download tokens.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a tokenizer signing with the given key.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) *JWTTokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// MintDownloadToken signs a token authorizing downloads of one session's
// credentials for ttl.
func (j *JWTTokenizer) MintDownloadToken(sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := DownloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  jwt.ClaimStrings{AudienceDownload},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("signing download token: %w", err)
	}
	return signed, nil
}

// VerifyDownloadToken validates signature, audience and expiry, returning
// the session id the token was minted for.
func (j *JWTTokenizer) VerifyDownloadToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceDownload))
	if err != nil {
		return "", fmt.Errorf("parsing download token: %w", err)
	}

	if !token.Valid {
		return "", core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*DownloadClaims)
	if !ok || claims.Subject == "" {
		return "", core.ErrInvalidToken
	}
	return claims.Subject, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)
