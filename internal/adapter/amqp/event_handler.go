package amqp

import (
	"context"
	"encoding/json"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/app/feed"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// EventHandler decodes scoped feed deliveries and hands them to the feed
// service for reconciliation.
type EventHandler struct {
	service *feed.Service
	logger  logger.Logger
}

func NewEventHandler(service *feed.Service, lgr logger.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  lgr,
	}
}

func (h *EventHandler) HandleEvent(ctx context.Context, body []byte) error {
	var evt interfaces.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse event message", "", nil, err)
		return err
	}

	return h.service.ApplyEvent(ctx, evt)
}
