package ports

import "time"

// Tokenizer mints and verifies the single-purpose tokens that protect the
// credential-archive download endpoint.
type Tokenizer interface {
	// MintDownloadToken returns a signed token authorizing downloads of
	// one session's credentials for ttl.
	MintDownloadToken(sessionID string, ttl time.Duration) (string, error)

	// VerifyDownloadToken validates a token and returns the session id it
	// was minted for.
	VerifyDownloadToken(token string) (string, error)
}
