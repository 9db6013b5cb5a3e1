package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnichan/backend/internal/facebook"
	"omnichan/backend/internal/sync"
	"omnichan/backend/pkg/logger"
)

const verifyToken = "test-verify-token"

// newWebhookRouter builds the handler over an idle dispatcher: events are
// queued but no worker drains them, so the queue depth observes dispatch.
func newWebhookRouter(t *testing.T) (*gin.Engine, *facebook.SignatureVerifier, *sync.Dispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	verifier := facebook.NewSignatureVerifier("app-secret")
	engine := sync.NewEngine(nil, nil, nil, nil, nil, nil, nil, log)
	dispatcher := sync.NewDispatcher(engine, sync.DispatcherConfig{QueueSize: 16, Workers: 1}, log)

	handler := NewWebhookHandler(verifier, dispatcher, verifyToken, log)

	r := gin.New()
	r.GET("/webhooks/facebook", handler.Verify)
	r.POST("/webhooks/facebook", handler.Receive)
	return r, verifier, dispatcher
}

func TestWebhookVerification(t *testing.T) {
	r, _, _ := newWebhookRouter(t)

	t.Run("echoes challenge on token match", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet,
			"/webhooks/facebook?hub.mode=subscribe&hub.verify_token="+verifyToken+"&hub.challenge=ch4lleng3", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ch4lleng3", w.Body.String())
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet,
			"/webhooks/facebook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=x", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/facebook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookReceive(t *testing.T) {
	payload := []byte(`{
		"object": "page",
		"entry": [{
			"id": "p1",
			"time": 1700000000000,
			"messaging": [{
				"sender": {"id": "u1"},
				"recipient": {"id": "p1"},
				"timestamp": 1700000000000,
				"message": {"mid": "m1", "text": "Hello"}
			}]
		}]
	}`)

	t.Run("rejects invalid signature without dispatching", func(t *testing.T) {
		r, _, dispatcher := newWebhookRouter(t)
		wrongSigner := facebook.NewSignatureVerifier("other-secret")

		w := postWebhook(r, payload, wrongSigner.Sign(payload))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, dispatcher.Pending())
	})

	t.Run("dispatches signed events", func(t *testing.T) {
		r, verifier, dispatcher := newWebhookRouter(t)

		w := postWebhook(r, payload, verifier.Sign(payload))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success": true}`, w.Body.String())
		assert.Equal(t, 1, dispatcher.Pending())
	})

	t.Run("accepts payload without signature header", func(t *testing.T) {
		r, _, dispatcher := newWebhookRouter(t)

		w := postWebhook(r, payload, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, dispatcher.Pending())
	})

	t.Run("acknowledges unparseable payloads", func(t *testing.T) {
		r, verifier, dispatcher := newWebhookRouter(t)
		garbage := []byte(`{"object": "page", "entry": [{"messaging": "not-an-array"}]}`)

		w := postWebhook(r, garbage, verifier.Sign(garbage))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success": true}`, w.Body.String())
		assert.Equal(t, 0, dispatcher.Pending())
	})

	t.Run("skips sub-events with nothing to normalize", func(t *testing.T) {
		r, verifier, dispatcher := newWebhookRouter(t)
		postback := []byte(`{
			"object": "page",
			"entry": [{
				"id": "p1",
				"messaging": [{
					"sender": {"id": "u1"},
					"recipient": {"id": "p1"},
					"timestamp": 1700000000000
				}]
			}]
		}`)

		w := postWebhook(r, postback, verifier.Sign(postback))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, dispatcher.Pending())
	})
}
