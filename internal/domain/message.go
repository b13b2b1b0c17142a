package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType discriminates inbound channel messages at the ingestion
// boundary. Unrecognized types are rejected there rather than propagated.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageImage       MessageType = "image"
	MessageAudio       MessageType = "audio"
	MessageInteractive MessageType = "interactive"
)

// InboundMessage is the channel-agnostic view of one inbound message. Text
// carries the body for text messages and the selected option's label for
// interactive replies. Raw preserves the original wire payload for
// persistence and for the change-feed consumer.
type InboundMessage struct {
	ID         string
	From       string
	Timestamp  string
	Type       MessageType
	Text       string
	MediaID    string
	Voice      bool
	Confidence float64
	Raw        json.RawMessage
}

// wireMessage is the subset of the channel's message shape the core parses.
type wireMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *struct {
		ID string `json:"id"`
	} `json:"image"`
	Audio *struct {
		ID string `json:"id"`
	} `json:"audio"`
	Interactive *struct {
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
	// Set by the voice pipeline when re-injecting a transcript as text.
	Source     string  `json:"_source"`
	Confidence float64 `json:"_confidence"`
}

// ParseInboundMessage decodes one raw channel message into the tagged form.
func ParseInboundMessage(raw json.RawMessage) (InboundMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return InboundMessage{}, fmt.Errorf("domain: decode inbound message: %w", err)
	}
	if w.ID == "" || w.From == "" {
		return InboundMessage{}, fmt.Errorf("domain: inbound message missing id or sender")
	}

	m := InboundMessage{
		ID:         w.ID,
		From:       w.From,
		Timestamp:  w.Timestamp,
		Voice:      w.Source == "voice",
		Confidence: w.Confidence,
		Raw:        raw,
	}

	switch MessageType(w.Type) {
	case MessageText:
		m.Type = MessageText
		if w.Text != nil {
			m.Text = strings.TrimSpace(w.Text.Body)
		}
	case MessageInteractive:
		m.Type = MessageInteractive
		if w.Interactive != nil {
			switch {
			case w.Interactive.ButtonReply != nil:
				m.Text = strings.TrimSpace(w.Interactive.ButtonReply.Title)
			case w.Interactive.ListReply != nil:
				m.Text = strings.TrimSpace(w.Interactive.ListReply.Title)
			}
		}
	case MessageImage:
		m.Type = MessageImage
		if w.Image != nil {
			m.MediaID = w.Image.ID
		}
	case MessageAudio:
		m.Type = MessageAudio
		if w.Audio != nil {
			m.MediaID = w.Audio.ID
		}
	default:
		return InboundMessage{}, fmt.Errorf("domain: unsupported message type %q", w.Type)
	}
	return m, nil
}

// QueuedMessage is the envelope forwarded to the processing queues. The
// sender id doubles as the ordering key; the external message id as the
// delivery-deduplication key.
type QueuedMessage struct {
	WAMID    string          `json:"wamid"`
	From     string          `json:"from"`
	Type     MessageType     `json:"type"`
	Message  json.RawMessage `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
