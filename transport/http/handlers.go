package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pairgate/pairgate/core"
	"github.com/pairgate/pairgate/service"
)

// PairingHandlers contains the HTTP handlers for the pairing endpoints.
type PairingHandlers struct {
	svc *service.PairingService
	log zerolog.Logger
}

// NewPairingHandlers creates the handler set.
func NewPairingHandlers(svc *service.PairingService, log zerolog.Logger) *PairingHandlers {
	return &PairingHandlers{
		svc: svc,
		log: log.With().Str("component", "http").Logger(),
	}
}

// PairingCode handles POST /pairing-code.
func (h *PairingHandlers) PairingCode(c *gin.Context) {
	var req struct {
		SessionID   string `json:"sessionId"`
		PhoneNumber string `json:"phoneNumber" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber is required"})
		return
	}

	out := h.svc.StartPairing(c.Request.Context(), req.SessionID, req.PhoneNumber)
	h.writeOutcome(c, out)
}

// QR handles POST /qr. The phone number is optional and only feeds the
// confirmation message.
func (h *PairingHandlers) QR(c *gin.Context) {
	var req struct {
		SessionID   string `json:"sessionId"`
		PhoneNumber string `json:"phoneNumber"`
	}

	// An empty body is fine for the QR flow; anything else must be valid
	// JSON. Binding unconditionally also covers chunked requests, which
	// carry no Content-Length.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	out := h.svc.StartQR(c.Request.Context(), req.SessionID, req.PhoneNumber)
	h.writeOutcome(c, out)
}

// Download handles GET /:sessionId, streaming the credential directory as a
// zip archive.
func (h *PairingHandlers) Download(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var buf bytes.Buffer
	if err := h.svc.Archive(sessionID, &buf); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("archiving session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive session"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sessionID+".zip"))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// Health handles GET /healthz.
func (h *PairingHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"activeSessions": h.svc.ActiveAttempts(),
	})
}

func (h *PairingHandlers) writeOutcome(c *gin.Context, out core.Outcome) {
	switch out.Kind {
	case core.OutcomePairingCode:
		c.JSON(http.StatusOK, gin.H{
			"sessionId":   out.SessionID,
			"pairingCode": out.PairingCode,
			"message":     out.Message,
		})
	case core.OutcomeQR:
		c.JSON(http.StatusOK, gin.H{
			"sessionId": out.SessionID,
			"qrCode":    out.QRCode,
			"message":   out.Message,
		})
	case core.OutcomeConnected:
		resp := gin.H{
			"sessionId":     out.SessionID,
			"sessionString": out.SessionString,
			"message":       out.Message,
		}
		if out.DownloadToken != "" {
			resp["downloadToken"] = out.DownloadToken
		}
		c.JSON(http.StatusOK, resp)
	default:
		h.writeFailure(c, out)
	}
}

func (h *PairingHandlers) writeFailure(c *gin.Context, out core.Outcome) {
	err := out.Err
	h.log.Warn().Err(err).Str("session_id", out.SessionID).Msg("pairing request failed")

	switch {
	case errors.Is(err, core.ErrInvalidPhone), errors.Is(err, core.ErrInvalidSessionID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNumberBusy):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "this number is already being paired",
			"existingSessionId": out.ExistingSessionID,
		})
	case errors.Is(err, core.ErrAttemptReplaced):
		c.JSON(http.StatusConflict, gin.H{"error": "a newer pairing attempt replaced this one"})
	case errors.Is(err, core.ErrAttemptTimeout):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "pairing attempt timed out"})
	case out.Disconnect != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      out.Disconnect.Message,
			"category":   string(out.Disconnect.Category),
			"suggestion": out.Disconnect.Suggestion,
		})
	default:
		resp := gin.H{"error": "pairing failed"}
		if out.Suggestion != "" {
			resp["suggestion"] = out.Suggestion
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}
