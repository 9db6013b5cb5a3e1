package facebook

// WebhookPayload is the envelope Facebook posts to the webhook endpoint
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one page entry inside a webhook envelope
type WebhookEntry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single messaging sub-event. At most one of Message, Read
// or Delivery is set.
type Messaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64         `json:"timestamp"`
	Message   *MessageData  `json:"message,omitempty"`
	Read      *ReadData     `json:"read,omitempty"`
	Delivery  *DeliveryData `json:"delivery,omitempty"`
}

// MessageData is the content of an incoming message event
type MessageData struct {
	Mid         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a media reference attached to a message
type Attachment struct {
	Type    string `json:"type"` // image, video, audio, file
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

// ReadData is a read receipt: everything sent at or before the watermark
// has been read.
type ReadData struct {
	Watermark int64 `json:"watermark"`
}

// DeliveryData is a delivery receipt for specific message ids
type DeliveryData struct {
	Mids      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
}

// SendMessageRequest is the outbound Graph API send payload
type SendMessageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	MessagingType string `json:"messaging_type"`
}

// SendMessageResponse is the Graph API response to a send
type SendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SenderActionRequest carries typing indicators and mark-seen actions
type SenderActionRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	SenderAction string `json:"sender_action"` // typing_on, typing_off, mark_seen
}

// ErrorResponse is the Graph API error envelope
type ErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// OAuthTokenResponse is returned by the OAuth token exchange endpoints
type OAuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// PageInfo describes one page the connecting user manages
type PageInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category"`
}

// pageListResponse wraps the /me/accounts result
type pageListResponse struct {
	Data []PageInfo `json:"data"`
}

// UserProfile is the public profile of a messaging user
type UserProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
