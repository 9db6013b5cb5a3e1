package facebook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnichan/backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	client := NewClient(ClientConfig{
		BaseURL:   server.URL,
		AppID:     "app-id",
		AppSecret: "app-secret",
	}, log)
	return client, server
}

func TestSendMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/me/messages", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req.Recipient.ID)
		assert.Equal(t, "Hello there", req.Message.Text)
		assert.Equal(t, "RESPONSE", req.MessagingType)

		json.NewEncoder(w).Encode(SendMessageResponse{RecipientID: "u1", MessageID: "mid.123"})
	})

	resp, err := client.SendMessage(context.Background(), "page-token", "u1", "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "mid.123", resp.MessageID)
}

func TestSendMessageGraphError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid OAuth access token", "type": "OAuthException", "code": 190}}`))
	})

	_, err := client.SendMessage(context.Background(), "bad-token", "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Contains(t, err.Error(), "190")
}

func TestGetUserProfile(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/u1", r.URL.Path)
		assert.Equal(t, "name", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]string{"name": "Jane Roe"})
	})

	profile, err := client.GetUserProfile(context.Background(), "page-token", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", profile.Name)
	assert.Equal(t, "u1", profile.ID)
}

func TestGetUserPages(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		w.Write([]byte(`{"data": [{"id": "p1", "name": "Test Shop", "access_token": "pt1"}]}`))
	})

	pages, err := client.GetUserPages(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "p1", pages[0].ID)
	assert.Equal(t, "pt1", pages[0].AccessToken)
}

type countingFetcher struct {
	calls int
	name  string
}

func (c *countingFetcher) GetUserProfile(_ context.Context, _, psid string) (*UserProfile, error) {
	c.calls++
	return &UserProfile{ID: psid, Name: c.name}, nil
}

func TestProfileCacheAvoidsRefetch(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	fetcher := &countingFetcher{name: "Jane Roe"}
	cache := NewProfileCache(fetcher, nil, 0, log)

	assert.Equal(t, "Jane Roe", cache.GetName(context.Background(), "tok", "u1"))
	assert.Equal(t, "Jane Roe", cache.GetName(context.Background(), "tok", "u1"))
	assert.Equal(t, 1, fetcher.calls)
}
