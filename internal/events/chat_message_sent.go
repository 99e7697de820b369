package events

import "time"

const ChatMessageTopic = "hr.chat.message.v1"

type ChatMessageSentEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	CompanyID      string    `json:"company_id"`
	SenderID       string    `json:"sender_id"`
	HasAttachment  bool      `json:"has_attachment"`
	OccurredAt     time.Time `json:"occurred_at"`
}
