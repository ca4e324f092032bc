package pipeline

import (
	"testing"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/bus"
)

const testBotID = "7775885000@c.us"

func incoming(sender, messageID, content string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel:   "greenapi",
		EventType: bus.EventIncomingMessage,
		SenderID:  sender,
		ChatID:    sender,
		MessageID: messageID,
		Content:   content,
	}
}

func TestAdmitGateOrder(t *testing.T) {
	cases := []struct {
		name   string
		msg    bus.InboundMessage
		want   Decision
		reason string
	}{
		{
			name:   "non-incoming event type",
			msg:    bus.InboundMessage{EventType: "outgoingMessageStatus", SenderID: "1@c.us", Content: "x"},
			want:   DecisionIgnored,
			reason: "not-incoming",
		},
		{
			name:   "absent event type",
			msg:    bus.InboundMessage{SenderID: "1@c.us", Content: "x"},
			want:   DecisionIgnored,
			reason: "no-event-type",
		},
		{
			name:   "missing sender",
			msg:    bus.InboundMessage{EventType: bus.EventIncomingMessage, Content: "x"},
			want:   DecisionIgnored,
			reason: "no-sender",
		},
		{
			name: "self message wins over content checks",
			msg:  incoming(testBotID, "m1", "   "),
			want: DecisionSelfMessage,
		},
		{
			name: "blank content",
			msg:  incoming("123@c.us", "", "  \t "),
			want: DecisionEmpty,
		},
		{
			name: "well-formed message proceeds",
			msg:  incoming("123@c.us", "m2", "hello"),
			want: DecisionProceed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAdmission(testBotID, NewLedger(16))
			v := a.admit(tc.msg)
			if v.decision != tc.want {
				t.Fatalf("decision = %v, want %v", v.decision, tc.want)
			}
			if tc.reason != "" && v.reason != tc.reason {
				t.Fatalf("reason = %q, want %q", v.reason, tc.reason)
			}
		})
	}
}

func TestAdmitDuplicateSecondDelivery(t *testing.T) {
	a := newAdmission(testBotID, NewLedger(16))

	if v := a.admit(incoming("123@c.us", "m1", "hello")); v.decision != DecisionProceed {
		t.Fatalf("first delivery = %v, want proceed", v.decision)
	}
	if v := a.admit(incoming("123@c.us", "m1", "hello")); v.decision != DecisionDuplicate {
		t.Fatalf("second delivery = %v, want duplicate", v.decision)
	}
}

func TestAdmitMissingMessageIDSkipsDedup(t *testing.T) {
	a := newAdmission(testBotID, NewLedger(16))

	for i := 0; i < 2; i++ {
		if v := a.admit(incoming("123@c.us", "", "hello")); v.decision != DecisionProceed {
			t.Fatalf("delivery %d = %v, want proceed without dedup", i, v.decision)
		}
	}
}

func TestAdmitIgnoredEventDoesNotConsumeMessageID(t *testing.T) {
	a := newAdmission(testBotID, NewLedger(16))

	other := incoming("123@c.us", "m1", "hello")
	other.EventType = "stateInstanceChanged"
	if v := a.admit(other); v.decision != DecisionIgnored {
		t.Fatalf("decision = %v, want ignored", v.decision)
	}

	// The type gate fired before the duplicate gate, so m1 is still fresh.
	if v := a.admit(incoming("123@c.us", "m1", "hello")); v.decision != DecisionProceed {
		t.Fatalf("decision = %v, want proceed", v.decision)
	}
}

func TestGreetingSet(t *testing.T) {
	set := newGreetingSet([]string{" Start ", "Привет", ""})

	if !set.match("start") {
		t.Fatal("start should match case-insensitively")
	}
	if !set.match("  ПРИВЕТ  ") {
		t.Fatal("Cyrillic greeting should match after trim and fold")
	}
	if set.match("start please") {
		t.Fatal("partial phrases must not match")
	}
	if set.match("") {
		t.Fatal("blank text must not match")
	}
}
