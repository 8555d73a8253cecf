package http

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pairgate/pairgate/ports"
	"github.com/pairgate/pairgate/service"
)

// SetupRouter wires the gin router. publicDir, when it exists, is served for
// the pairing web page; tokens, when non-nil, protects credential downloads.
func SetupRouter(svc *service.PairingService, tokens ports.Tokenizer, publicDir string, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(log), gin.Recovery())

	handlers := NewPairingHandlers(svc, log)

	router.POST("/pairing-code", handlers.PairingCode)
	router.POST("/qr", handlers.QR)
	router.GET("/healthz", handlers.Health)
	router.GET("/:sessionId", DownloadAuth(tokens), handlers.Download)

	if publicDir != "" {
		if index := filepath.Join(publicDir, "index.html"); fileExists(index) {
			router.StaticFile("/", index)
		}
	}

	return router
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
