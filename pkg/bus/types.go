package bus

// EventIncomingMessage is the only event type that can produce a reply.
// Every other webhook event is acknowledged and dropped.
const EventIncomingMessage = "incomingMessageReceived"

// InboundMessage is one normalized platform event entering the relay.
//
// SenderID is the platform-qualified identity used for self-message
// detection; ChatID is the conversation identifier used for routing the
// reply. MessageID may be empty when the platform did not assign one.
type InboundMessage struct {
	Channel   string            `json:"channel"`
	EventType string            `json:"event_type"`
	SenderID  string            `json:"sender_id"`
	ChatID    string            `json:"chat_id"`
	MessageID string            `json:"message_id,omitempty"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is the pipeline verdict for one inbound event. Status is
// the admission outcome reported back to the platform; Content is the reply
// text, and an empty Content means nothing is dispatched.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Status  string `json:"status"`
	Content string `json:"content,omitempty"`
}
