package greenapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/bus"
)

// chatSuffix is the WhatsApp conversation-domain marker on chat IDs.
const chatSuffix = "@c.us"

// notification mirrors the Green API webhook body shapes the relay
// accepts. Fields the deployment never uses are left out; unknown keys
// are ignored by the decoder.
type notification struct {
	TypeWebhook string      `json:"typeWebhook"`
	IDMessage   string      `json:"idMessage"`
	SenderData  senderData  `json:"senderData"`
	MessageData messageData `json:"messageData"`
}

type senderData struct {
	ChatID     string `json:"chatId"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
}

type messageData struct {
	TypeMessage             string                   `json:"typeMessage"`
	TextMessageData         *textMessageData         `json:"textMessageData"`
	ExtendedTextMessageData *extendedTextMessageData `json:"extendedTextMessageData"`
	Conversation            string                   `json:"conversation"`
}

type textMessageData struct {
	TextMessage string `json:"textMessage"`
}

type extendedTextMessageData struct {
	Text string `json:"text"`
}

// Normalize parses one webhook body into the canonical inbound message.
// A body that is not a JSON object is malformed; missing nested fields
// yield absent values, never an error.
func Normalize(body []byte) (bus.InboundMessage, error) {
	// json.Unmarshal maps null onto the zero struct, so the object shape
	// is checked before decoding.
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return bus.InboundMessage{}, errors.New("malformed webhook payload: body is not a JSON object")
	}

	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return bus.InboundMessage{}, fmt.Errorf("malformed webhook payload: %w", err)
	}

	return bus.InboundMessage{
		Channel:   channelName,
		EventType: n.TypeWebhook,
		SenderID:  n.SenderData.ChatID,
		ChatID:    conversationID(n.SenderData.ChatID),
		MessageID: n.IDMessage,
		Content:   n.text(),
	}, nil
}

// text extracts message text, trying the known payload shapes in priority
// order: plain text message, extended/quoted text, conversation body.
func (n notification) text() string {
	if t := n.MessageData.TextMessageData; t != nil && t.TextMessage != "" {
		return t.TextMessage
	}
	if t := n.MessageData.ExtendedTextMessageData; t != nil && t.Text != "" {
		return t.Text
	}

	return n.MessageData.Conversation
}

// conversationID strips the conversation-domain suffix for routing.
func conversationID(chatID string) string {
	return strings.TrimSuffix(chatID, chatSuffix)
}
