package pipeline

import (
	"context"
	"log/slog"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/bus"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/provider"
)

// Pipeline turns one normalized inbound event into an outbound verdict:
// admission gates, the greeting shortcut, the AI backend call, and answer
// sanitation, in that order. Collaborator failures are absorbed here and
// never surface to the webhook response.
type Pipeline struct {
	admission     *admission
	greetings     greetingSet
	greetingReply string
	client        provider.Client
	sanitizer     *Sanitizer
	errorReply    string
	log           *slog.Logger
}

func New(cfg *config.Config, client provider.Client, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		admission:     newAdmission(cfg.Channels.GreenAPI.BotChatID, NewLedger(cfg.Pipeline.DedupCapacity)),
		greetings:     newGreetingSet(cfg.Pipeline.Greetings),
		greetingReply: cfg.Pipeline.GreetingReply,
		client:        client,
		sanitizer:     NewSanitizer(cfg.Channels.GreenAPI.InstanceID, cfg.Pipeline.RepeatToken, cfg.Pipeline.RepeatLimit),
		errorReply:    cfg.Provider.Flowise.ErrorReply,
		log:           log.With("component", "pipeline"),
	}
}

// Handle processes one event. It never returns an error: every outcome
// maps to a status the adapter acknowledges with HTTP 200.
func (p *Pipeline) Handle(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	out := bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID}

	v := p.admission.admit(msg)
	switch v.decision {
	case DecisionIgnored:
		p.log.Debug("event ignored", "reason", v.reason, "event_type", msg.EventType)
		out.Status = StatusIgnored
		return out
	case DecisionSelfMessage:
		p.log.Debug("own message echoed back, skipping", "chat_id", msg.ChatID)
		out.Status = StatusSelfMessage
		return out
	case DecisionDuplicate:
		p.log.Info("duplicate delivery dropped", "message_id", msg.MessageID, "chat_id", msg.ChatID)
		out.Status = StatusDuplicate
		return out
	case DecisionEmpty:
		p.log.Debug("empty or non-text message", "chat_id", msg.ChatID)
		out.Status = StatusNoMessage
		return out
	}

	if p.greetings.match(msg.Content) {
		p.log.Info("greeting shortcut", "chat_id", msg.ChatID)
		out.Status = StatusOK
		out.Content = p.greetingReply
		return out
	}

	answer, err := p.client.Ask(ctx, msg.Content, nil)
	if err != nil {
		p.log.Error("AI backend call failed", "chat_id", msg.ChatID, "error", err)
		// The user still gets a reply; the placeholder goes through the
		// sanitizer like any other answer.
		answer = p.errorReply
	}

	text, reason := p.sanitizer.Sanitize(answer)
	if reason != "" {
		p.log.Warn("answer suppressed", "reason", reason, "chat_id", msg.ChatID)
		out.Status = StatusFiltered
		return out
	}

	out.Status = StatusOK
	out.Content = text
	return out
}
