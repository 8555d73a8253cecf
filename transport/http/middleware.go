package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pairgate/pairgate/ports"
)

// RequestLogger logs one structured line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// DownloadAuth validates the download token for credential-archive requests.
// The token may arrive as a bearer header or a ?token query parameter and
// must have been minted for the requested session id. A nil tokenizer
// disables the check.
func DownloadAuth(tokens ports.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		raw := c.Query("token")
		if auth := c.GetHeader("Authorization"); raw == "" && strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "download token required"})
			return
		}

		sessionID, err := tokens.VerifyDownloadToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid download token"})
			return
		}
		if sessionID != c.Param("sessionId") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not match session"})
			return
		}

		c.Next()
	}
}
