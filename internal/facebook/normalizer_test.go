package facebook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIncomingMessage(t *testing.T) {
	image := Attachment{Type: "image"}
	image.Payload.URL = "https://cdn.example.com/a.jpg"
	noURL := Attachment{Type: "file"} // no URL, kept with empty string

	raw := Messaging{
		Timestamp: 1700000000000,
		Message: &MessageData{
			Mid:         "m1",
			Text:        "Hello",
			Attachments: []Attachment{image, noURL},
		},
	}
	raw.Sender.ID = "u1"
	raw.Recipient.ID = "p1"

	ev, ok := Normalize("p1", raw)
	require.True(t, ok)
	assert.Equal(t, EventIncomingMessage, ev.Kind)
	assert.Equal(t, "p1", ev.PageID)
	assert.Equal(t, "u1", ev.SenderID)
	assert.Equal(t, "m1", ev.PlatformMessageID)
	assert.Equal(t, "Hello", ev.Text)
	assert.Equal(t, time.UnixMilli(1700000000000), ev.SentAt)

	require.Len(t, ev.Attachments, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", ev.Attachments[0].URL)
	assert.Equal(t, "file", ev.Attachments[1].Type)
	assert.Equal(t, "", ev.Attachments[1].URL)
}

func TestNormalizeReadReceipt(t *testing.T) {
	raw := Messaging{Read: &ReadData{Watermark: 1700000001000}}
	raw.Sender.ID = "u1"

	ev, ok := Normalize("p1", raw)
	require.True(t, ok)
	assert.Equal(t, EventReadReceipt, ev.Kind)
	assert.Equal(t, time.UnixMilli(1700000001000), ev.Watermark)
}

func TestNormalizeDeliveryReceipt(t *testing.T) {
	raw := Messaging{Delivery: &DeliveryData{
		Mids:      []string{"m1", "m2"},
		Watermark: 1700000000500,
	}}
	raw.Sender.ID = "u1"

	ev, ok := Normalize("p1", raw)
	require.True(t, ok)
	assert.Equal(t, EventDeliveryReceipt, ev.Kind)
	assert.Equal(t, []string{"m1", "m2"}, ev.Mids)
	assert.Equal(t, time.UnixMilli(1700000000500), ev.Watermark)
}

func TestNormalizeDropsUnrecognizedEvents(t *testing.T) {
	_, ok := Normalize("p1", Messaging{Timestamp: 1700000000000})
	assert.False(t, ok)
}

func TestNormalizeDropsEchoes(t *testing.T) {
	raw := Messaging{Message: &MessageData{Mid: "m1", Text: "our own reply", IsEcho: true}}
	_, ok := Normalize("p1", raw)
	assert.False(t, ok)
}
