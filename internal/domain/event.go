package domain

import (
	"bytes"
	"encoding/json"
)

// InboundEvent is one webhook event delivered by the LINE platform.
// Events are read-only to this system; one event fans out to at most one reply.
type InboundEvent struct {
	Type       string         `json:"type"`
	Message    InboundMessage `json:"message"`
	ReplyToken string         `json:"replyToken"`
	Source     EventSource    `json:"source"`
}

// InboundMessage is the message payload of a message-type event.
type InboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// EventSource identifies the user that produced the event.
type EventSource struct {
	UserID string `json:"userId"`
}

// WebhookBody is the envelope of an inbound webhook call. An empty, missing,
// or non-list events field is a normal occurrence (platform verification
// pings) and decodes to an empty list rather than an error.
type WebhookBody struct {
	Events []InboundEvent `json:"events"`
}

func (b *WebhookBody) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	raw := bytes.TrimSpace(envelope.Events)
	if len(raw) == 0 || raw[0] != '[' {
		b.Events = nil
		return nil
	}
	return json.Unmarshal(raw, &b.Events)
}

// IsTextMessage reports whether the event qualifies for relay processing.
func (e InboundEvent) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text"
}
