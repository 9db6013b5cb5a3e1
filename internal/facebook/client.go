package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"omnichan/backend/pkg/logger"
)

// Client talks to the Facebook Graph API. All calls use a bounded-timeout
// HTTP client so a slow platform cannot pin an event worker.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	log        *logger.Logger
}

// ClientConfig configures the Graph API client
type ClientConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
	Timeout   time.Duration
}

func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// SendMessage delivers a text message to a recipient and returns the
// platform-assigned message id.
func (c *Client) SendMessage(ctx context.Context, accessToken, recipientID, text string) (*SendMessageResponse, error) {
	payload := SendMessageRequest{MessagingType: "RESPONSE"}
	payload.Recipient.ID = recipientID
	payload.Message.Text = text

	var resp SendMessageResponse
	if err := c.post(ctx, "/me/messages", accessToken, payload, &resp); err != nil {
		return nil, err
	}

	c.log.Debug("Facebook message sent", "recipient_id", recipientID, "message_id", resp.MessageID)
	return &resp, nil
}

// SendTypingIndicator toggles the typing indicator for a recipient.
// Failures are returned but callers treat them as non-fatal.
func (c *Client) SendTypingIndicator(ctx context.Context, accessToken, recipientID string, on bool) error {
	action := "typing_off"
	if on {
		action = "typing_on"
	}
	return c.senderAction(ctx, accessToken, recipientID, action)
}

// MarkSeen marks the conversation as seen for a recipient
func (c *Client) MarkSeen(ctx context.Context, accessToken, recipientID string) error {
	return c.senderAction(ctx, accessToken, recipientID, "mark_seen")
}

func (c *Client) senderAction(ctx context.Context, accessToken, recipientID, action string) error {
	payload := SenderActionRequest{SenderAction: action}
	payload.Recipient.ID = recipientID
	return c.post(ctx, "/me/messages", accessToken, payload, nil)
}

// GetUserProfile fetches the public profile of a messaging user
func (c *Client) GetUserProfile(ctx context.Context, accessToken, psid string) (*UserProfile, error) {
	var profile UserProfile
	params := url.Values{"fields": {"name"}, "access_token": {accessToken}}
	if err := c.get(ctx, "/"+psid+"?"+params.Encode(), &profile); err != nil {
		return nil, err
	}
	profile.ID = psid
	return &profile, nil
}

// ExchangeCodeForToken exchanges an OAuth authorization code for a user
// access token.
func (c *Client) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (*OAuthTokenResponse, error) {
	params := url.Values{
		"client_id":     {c.appID},
		"client_secret": {c.appSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}
	var resp OAuthTokenResponse
	if err := c.get(ctx, "/oauth/access_token?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLongLivedToken upgrades a short-lived user token to a long-lived one
func (c *Client) GetLongLivedToken(ctx context.Context, shortLivedToken string) (string, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.appID},
		"client_secret":     {c.appSecret},
		"fb_exchange_token": {shortLivedToken},
	}
	var resp OAuthTokenResponse
	if err := c.get(ctx, "/oauth/access_token?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// GetUserPages lists the pages the user manages, each with its page token
func (c *Client) GetUserPages(ctx context.Context, userAccessToken string) ([]PageInfo, error) {
	params := url.Values{"access_token": {userAccessToken}}
	var resp pageListResponse
	if err := c.get(ctx, "/me/accounts?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SubscribePage subscribes the app to the page's messaging webhook fields
func (c *Client) SubscribePage(ctx context.Context, pageID, pageAccessToken string) error {
	params := url.Values{
		"access_token": {pageAccessToken},
		"subscribed_fields": {strings.Join([]string{
			"messages",
			"messaging_postbacks",
			"messaging_optins",
			"message_deliveries",
			"message_reads",
		}, ",")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+pageID+"/subscribed_apps?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path, accessToken string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding graph payload: %w", err)
	}

	u := c.baseURL + path + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, pathAndQuery string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading graph api response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("graph api error (status %d, code %d): %s",
				resp.StatusCode, errResp.Error.Code, errResp.Error.Message)
		}
		return fmt.Errorf("graph api error (status %d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding graph api response: %w", err)
	}
	return nil
}
