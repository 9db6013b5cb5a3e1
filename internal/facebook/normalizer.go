package facebook

import (
	"time"
)

// EventKind discriminates the normalized event union
type EventKind int

const (
	EventIncomingMessage EventKind = iota
	EventReadReceipt
	EventDeliveryReceipt
)

// NormalizedAttachment is a platform attachment reduced to what the sync
// engine stores.
type NormalizedAttachment struct {
	Type string
	URL  string
}

// Event is the normalized form of one messaging sub-event. Kind selects
// which fields are meaningful.
type Event struct {
	Kind   EventKind
	PageID string

	// EventIncomingMessage
	SenderID          string
	RecipientID       string
	PlatformMessageID string
	Text              string
	Attachments       []NormalizedAttachment
	SentAt            time.Time

	// EventReadReceipt and EventDeliveryReceipt
	Watermark time.Time

	// EventDeliveryReceipt
	Mids []string
}

// Normalize maps a raw messaging sub-event to a normalized event. A
// sub-event carrying none of message/read/delivery yields ok=false and is
// dropped silently; that is expected traffic (postbacks, optins), not an
// error. Attachments without a URL keep an empty string rather than failing
// the whole event.
func Normalize(pageID string, raw Messaging) (Event, bool) {
	switch {
	case raw.Message != nil && raw.Message.IsEcho:
		// echoes of our own outbound sends come back on the same webhook
		return Event{}, false

	case raw.Message != nil:
		ev := Event{
			Kind:              EventIncomingMessage,
			PageID:            pageID,
			SenderID:          raw.Sender.ID,
			RecipientID:       raw.Recipient.ID,
			PlatformMessageID: raw.Message.Mid,
			Text:              raw.Message.Text,
			SentAt:            time.UnixMilli(raw.Timestamp),
		}
		for _, att := range raw.Message.Attachments {
			ev.Attachments = append(ev.Attachments, NormalizedAttachment{
				Type: att.Type,
				URL:  att.Payload.URL,
			})
		}
		return ev, true

	case raw.Read != nil:
		return Event{
			Kind:      EventReadReceipt,
			PageID:    pageID,
			SenderID:  raw.Sender.ID,
			Watermark: time.UnixMilli(raw.Read.Watermark),
		}, true

	case raw.Delivery != nil:
		return Event{
			Kind:      EventDeliveryReceipt,
			PageID:    pageID,
			SenderID:  raw.Sender.ID,
			Mids:      raw.Delivery.Mids,
			Watermark: time.UnixMilli(raw.Delivery.Watermark),
		}, true
	}

	return Event{}, false
}
