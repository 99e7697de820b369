package chat

type SendMessageRequest struct {
	Body           string `form:"body" json:"body"`
	AttachmentType string `form:"attachment_type" json:"attachment_type"`
}

// AttachmentInput is the decoded multipart file, already size-checked by
// the handler.
type AttachmentInput struct {
	FileName    string
	ContentType string
	Size        int64
	Content     []byte
}

type CreateConversationRequest struct {
	RecipientIDs []string `json:"recipient_ids" binding:"required,min=1,dive,uuid"`
	Type         string   `json:"type" binding:"omitempty,oneof=private group"`
	Name         string   `json:"name" binding:"omitempty,max=255"`
}

type ConversationResponse struct {
	ID                 string  `json:"id"`
	Type               string  `json:"type"`
	Name               string  `json:"name"`
	IsOnline           *bool   `json:"is_online,omitempty"`
	LastSeenAt         *string `json:"last_seen_at,omitempty"`
	LastMessagePreview string  `json:"last_message_preview"`
	LastMessageAt      *string `json:"last_message_at"`
	UnreadCount        int     `json:"unread_count"`
}

type MessageResponse struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Body           string  `json:"body"`
	UserID         string  `json:"user_id"`
	UserName       string  `json:"user_name"`
	UserAvatar     *string `json:"user_avatar"`
	AttachmentType *string `json:"attachment_type"`
	AttachmentName *string `json:"attachment_name"`
	AttachmentSize *int64  `json:"attachment_size"`
	AttachmentURL  *string `json:"attachment_url"`
	IsMine         bool    `json:"is_mine"`
	ReadAt         *string `json:"read_at"`
	CreatedAt      string  `json:"created_at"`
}

type ChatUserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
