package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypePrivate = "private"
	TypeGroup   = "group"
)

const (
	ParticipantRoleAdmin  = "admin"
	ParticipantRoleMember = "member"
)

const (
	AttachmentImage    = "image"
	AttachmentVideo    = "video"
	AttachmentAudio    = "audio"
	AttachmentVoice    = "voice"
	AttachmentDocument = "document"
)

// OnlineWindow is how recently a user must have been seen to count as online.
const OnlineWindow = 5 * time.Minute

type Conversation struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID     uuid.UUID      `gorm:"column:company_id;type:uuid;not null;index"`
	Type          string         `gorm:"column:type;type:varchar(20);not null;default:'private'"`
	Name          *string        `gorm:"column:name;type:varchar(255)"`
	CreatedBy     uuid.UUID      `gorm:"column:created_by;type:uuid;not null"`
	LastMessageAt *time.Time     `gorm:"column:last_message_at;index"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`
}

func (Conversation) TableName() string { return "conversations" }

type ConversationParticipant struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID  `gorm:"column:conversation_id;type:uuid;not null;uniqueIndex:idx_conversation_user"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_conversation_user"`
	Role           string     `gorm:"column:role;type:varchar(20);not null;default:'member'"`
	UnreadCount    int        `gorm:"column:unread_count;not null;default:0"`
	LastReadAt     *time.Time `gorm:"column:last_read_at"`
	JoinedAt       time.Time  `gorm:"column:joined_at;autoCreateTime"`
}

func (ConversationParticipant) TableName() string { return "conversation_participants" }

type Message struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID      `gorm:"column:conversation_id;type:uuid;not null;index"`
	SenderID       uuid.UUID      `gorm:"column:sender_id;type:uuid;not null"`
	Body           string         `gorm:"column:body;type:text"`
	AttachmentType *string        `gorm:"column:attachment_type;type:varchar(20)"`
	AttachmentName *string        `gorm:"column:attachment_name;type:varchar(255)"`
	AttachmentPath *string        `gorm:"column:attachment_path;type:text"`
	AttachmentSize *int64         `gorm:"column:attachment_size"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Reads []MessageRead `gorm:"foreignKey:MessageID"`
}

func (Message) TableName() string { return "messages" }

// HasAttachment reports whether a stored file rides along with the message.
func (m *Message) HasAttachment() bool {
	return m.AttachmentPath != nil && *m.AttachmentPath != ""
}

// ReadAtForSender is the read receipt shown on the sender's own message:
// the earliest time any other participant read it, nil until then.
func (m *Message) ReadAtForSender() *time.Time {
	var earliest *time.Time
	for i := range m.Reads {
		r := &m.Reads[i]
		if r.UserID == m.SenderID {
			continue
		}
		if earliest == nil || r.ReadAt.Before(*earliest) {
			earliest = &r.ReadAt
		}
	}
	return earliest
}

type MessageRead struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	MessageID uuid.UUID `gorm:"column:message_id;type:uuid;not null;uniqueIndex:idx_message_reader"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_message_reader"`
	ReadAt    time.Time `gorm:"column:read_at;not null"`
}

func (MessageRead) TableName() string { return "message_reads" }
