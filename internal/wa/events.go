package wa

import (
	"github.com/matheus3301/postbot/internal/bus"
	"github.com/matheus3301/postbot/internal/status"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// EventHandler turns whatsmeow connection events into daemon status
// transitions and bus events. Incoming messages are ignored: the bot is
// driven from Telegram only.
type EventHandler struct {
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(b *bus.Bus, machine *status.Machine, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		bus:     b,
		machine: machine,
		logger:  logger,
	}
}

// Handle is the whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		h.transition(status.Ready)
	case *events.PairSuccess:
		h.logger.Info("WhatsApp paired", zap.String("jid", evt.ID.String()))
		h.bus.Emit(bus.KindWhatsAppPaired, evt.ID.User)
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		h.transition(status.Degraded)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		h.transition(status.AuthRequired)
		h.bus.Emit(bus.KindWhatsAppLoggedOut, evt.Reason.String())
	case *events.StreamReplaced:
		h.logger.Warn("WhatsApp session opened elsewhere")
		h.transition(status.Degraded)
	}
}

func (h *EventHandler) transition(to status.State) {
	if err := h.machine.Transition(to); err != nil {
		h.logger.Debug("status unchanged", zap.String("to", string(to)), zap.Error(err))
	}
}
