package pipeline

import (
	"strings"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/bus"
)

// Decision is the admission outcome for one inbound event.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionIgnored
	DecisionSelfMessage
	DecisionDuplicate
	DecisionEmpty
)

// Webhook statuses acknowledged back to the platform. Every recognized
// outcome answers 200 so the platform never retries a handled event.
const (
	StatusOK          = "ok"
	StatusIgnored     = "ignored"
	StatusDuplicate   = "duplicate"
	StatusSelfMessage = "self-message"
	StatusNoMessage   = "no-message"
	StatusFiltered    = "filtered"
	StatusFail        = "fail"
)

// verdict pairs a decision with the reason recorded in logs.
type verdict struct {
	decision Decision
	reason   string
}

// gate inspects one event; fired=true short-circuits the remaining chain.
type gate func(msg bus.InboundMessage) (v verdict, fired bool)

// admission runs the ordered gate chain that decides whether an event may
// reach the AI backend.
type admission struct {
	botID  string
	ledger *Ledger
	gates  []gate
}

func newAdmission(botID string, ledger *Ledger) *admission {
	a := &admission{botID: botID, ledger: ledger}
	a.gates = []gate{
		a.typeGate,
		a.identityGate,
		a.selfGate,
		a.duplicateGate,
		a.emptyGate,
	}

	return a
}

// admit applies the gates in order; the first one that fires wins.
func (a *admission) admit(msg bus.InboundMessage) verdict {
	for _, g := range a.gates {
		if v, fired := g(msg); fired {
			return v
		}
	}

	return verdict{decision: DecisionProceed}
}

// typeGate drops everything that is not a new incoming message, including
// bodyless health-style calls with no event type at all.
func (a *admission) typeGate(msg bus.InboundMessage) (verdict, bool) {
	if msg.EventType == bus.EventIncomingMessage {
		return verdict{}, false
	}

	reason := "not-incoming"
	if msg.EventType == "" {
		reason = "no-event-type"
	}

	return verdict{decision: DecisionIgnored, reason: reason}, true
}

// identityGate drops events without a sender; there is nowhere to reply.
func (a *admission) identityGate(msg bus.InboundMessage) (verdict, bool) {
	if msg.SenderID != "" {
		return verdict{}, false
	}

	return verdict{decision: DecisionIgnored, reason: "no-sender"}, true
}

// selfGate drops the bot's own messages echoed back through the webhook.
// Answering them would loop forever.
func (a *admission) selfGate(msg bus.InboundMessage) (verdict, bool) {
	if a.botID == "" || msg.SenderID != a.botID {
		return verdict{}, false
	}

	return verdict{decision: DecisionSelfMessage, reason: "self-message"}, true
}

// duplicateGate records the message ID before the event proceeds, so a
// crash mid-reply drops the message rather than double-sending it.
// Events without an ID skip deduplication entirely.
func (a *admission) duplicateGate(msg bus.InboundMessage) (verdict, bool) {
	if msg.MessageID == "" {
		return verdict{}, false
	}

	if a.ledger.Seen(msg.MessageID) {
		return verdict{decision: DecisionDuplicate, reason: "duplicate"}, true
	}

	return verdict{}, false
}

// emptyGate drops events whose text is blank after trimming (media-only
// messages, stickers, and so on).
func (a *admission) emptyGate(msg bus.InboundMessage) (verdict, bool) {
	if strings.TrimSpace(msg.Content) != "" {
		return verdict{}, false
	}

	return verdict{decision: DecisionEmpty, reason: "empty"}, true
}
