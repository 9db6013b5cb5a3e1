package api

import (
	"encoding/json"
	"io"
	"net/http"

	"omnichan/backend/internal/facebook"
	"omnichan/backend/internal/sync"
	"omnichan/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler terminates the platform webhook. The POST path is a hard
// firewall: once the signature checks out the platform always gets a 200,
// whatever happens to the payload afterwards, so it never retry-storms over
// processing failures.
type WebhookHandler struct {
	verifier    *facebook.SignatureVerifier
	dispatcher  *sync.Dispatcher
	verifyToken string
	logger      *logger.Logger
}

func NewWebhookHandler(
	verifier *facebook.SignatureVerifier,
	dispatcher *sync.Dispatcher,
	verifyToken string,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		dispatcher:  dispatcher,
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// Verify answers the platform's subscription handshake
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("Webhook verification succeeded")
		c.String(http.StatusOK, challenge)
		return
	}

	h.logger.Warn("Webhook verification failed", "mode", mode)
	c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
}

// Receive ingests one webhook delivery. The only non-200 outcome is a
// signature mismatch; malformed payloads are acknowledged and logged so the
// platform does not retry shapes we cannot parse anyway.
func (h *WebhookHandler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	if signature := c.GetHeader("X-Hub-Signature-256"); signature != "" {
		if !h.verifier.Verify(rawBody, signature) {
			h.logger.Warn("Webhook signature verification failed", "remote_addr", c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
			return
		}
	}

	var payload facebook.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Error("Failed to parse webhook payload", "error", err, "body_size", len(rawBody))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	// ack before processing; the platform requires a sub-second response
	c.JSON(http.StatusOK, gin.H{"success": true})

	for _, entry := range payload.Entry {
		for _, messaging := range entry.Messaging {
			ev, ok := facebook.Normalize(entry.ID, messaging)
			if !ok {
				continue
			}
			h.dispatcher.Enqueue(ev)
		}
	}
}
