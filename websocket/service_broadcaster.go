package websocket

import (
	"go.uber.org/zap"

	"marketplace-server/models"
	"marketplace-server/services"
)

// ServiceBroadcaster tells the other party of a request that it changed
type ServiceBroadcaster struct {
	hub *Hub
}

// NewServiceBroadcaster creates a new service broadcaster
func NewServiceBroadcaster(hub *Hub) *ServiceBroadcaster {
	return &ServiceBroadcaster{hub: hub}
}

// NotifyRequestUpdate pushes a localized request_update to the counterparty
// of actorID. Offline users are skipped; the next list fetch catches them up.
func (sb *ServiceBroadcaster) NotifyRequestUpdate(req *models.ServiceRequest, actorID uint) bool {
	if sb == nil || sb.hub == nil || req == nil {
		return false
	}

	recipient := req.Counterparty(actorID)
	title, body := services.NotificationText(req.Status, sb.hub.LocaleOf(recipient))
	sent := sb.hub.SendToUser(recipient, &Message{
		Type:      TypeRequestUpdate,
		RequestID: req.ID,
		Status:    req.Status.String(),
		Title:     title,
		Body:      body,
		SenderID:  actorID,
		Data:      req,
	})
	if sent {
		sb.hub.logger.Info("Request update pushed",
			zap.Uint("request_id", req.ID),
			zap.Uint("recipient", recipient),
			zap.String("status", req.Status.String()))
	}
	return sent
}
