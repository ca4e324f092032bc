package channel

import (
	"context"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/bus"
)

// Handler runs the admission pipeline for one inbound message and returns
// the outbound verdict. Handlers never fail for collaborator errors; the
// returned error covers internal faults only.
type Handler func(context.Context, bus.InboundMessage) (bus.OutboundMessage, error)

// Adapter bridges one external transport (Green API webhooks, Telegram)
// into the relay. An adapter owns its single send call site and delivers
// OutboundMessage.Content at most once per inbound event.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
