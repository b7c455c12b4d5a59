package ws

import (
	"github.com/shinyyama/marketplace-backend/internal/model"
)

// Dispatcher pushes conversation events onto the live channels after the
// durable write has committed. It implements service.Notifier.
type Dispatcher struct {
	hub *Hub
}

func NewDispatcher(h *Hub) *Dispatcher {
	return &Dispatcher{hub: h}
}

// MessageCreated fans a persisted message out to the conversation channel and
// nudges both participants' private channels so their inboxes refresh without
// polling.
func (d *Dispatcher) MessageCreated(cv *model.Conversation, msg *model.Message) {
	d.hub.BroadcastConversation(cv.ID, Encode(EventMessageNew, MessageNewPayload{
		ConversationID: cv.ID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderUID,
		Body:           msg.Body,
		SentAt:         msg.SentAt,
	}))

	updated := Encode(EventConversationUpdated, ConversationUpdatedPayload{ConversationID: cv.ID})
	d.hub.SendToUser(cv.SellerUID, updated)
	d.hub.SendToUser(cv.BuyerUID, updated)
}
