package chat

import (
	"context"
	"database/sql"
	"time"

	"hr-collab/internal/tenant"
	"hr-collab/internal/user"

	"gorm.io/gorm"
)

//go:generate mockgen -source=chat_repo.go -destination=mock/chat_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	FindConversationsByUser(ctx context.Context, companyID, userID string) ([]Conversation, error)
	FindPrivateConversationsByUser(ctx context.Context, companyID, userID string) ([]Conversation, error)
	FindConversationByID(ctx context.Context, companyID, id string) (*Conversation, error)
	CreateConversation(ctx context.Context, conv *Conversation) error
	TouchLastMessageAt(ctx context.Context, conversationID string, at time.Time) error

	IncrementUnread(ctx context.Context, conversationID, excludeUserID string) error
	MarkConversationRead(ctx context.Context, conversationID, userID string, at time.Time) error

	CreateMessage(ctx context.Context, m *Message) error
	FindMessages(ctx context.Context, conversationID string) ([]Message, error)
	LastMessages(ctx context.Context, conversationIDs []string) (map[string]Message, error)

	FindUsersByIDs(ctx context.Context, ids []string) ([]user.User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx rebinds the session onto the open transaction so repository writes
// commit and roll back together with the caller's other tx participants.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	session := r.db.Session(&gorm.Session{NewDB: true})
	session.Statement.ConnPool = tx
	return &repository{db: session}
}

func (r *repository) FindConversationsByUser(ctx context.Context, companyID, userID string) ([]Conversation, error) {
	var convs []Conversation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants").
		Order("conversations.last_message_at DESC NULLS LAST").
		Find(&convs).Error
	return convs, err
}

func (r *repository) FindPrivateConversationsByUser(ctx context.Context, companyID, userID string) ([]Conversation, error) {
	var convs []Conversation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Where("conversations.type = ?", TypePrivate).
		Preload("Participants").
		Find(&convs).Error
	return convs, err
}

func (r *repository) FindConversationByID(ctx context.Context, companyID, id string) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Participants").
		First(&conv, "id = ?", id).Error
	return &conv, err
}

func (r *repository) CreateConversation(ctx context.Context, conv *Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *repository) TouchLastMessageAt(ctx context.Context, conversationID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}

func (r *repository) IncrementUnread(ctx context.Context, conversationID, excludeUserID string) error {
	return r.db.WithContext(ctx).
		Model(&ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Where("user_id <> ?", excludeUserID).
		Update("unread_count", gorm.Expr("unread_count + 1")).Error
}

func (r *repository) MarkConversationRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"unread_count": 0,
			"last_read_at": at,
		}).Error
	if err != nil {
		return err
	}

	// Receipt rows for every message from the other participants the reader
	// has not acknowledged yet.
	return r.db.WithContext(ctx).Exec(`
INSERT INTO message_reads (id, message_id, user_id, read_at)
SELECT gen_random_uuid(), m.id, ?, ?
FROM messages m
WHERE m.conversation_id = ?
	AND m.sender_id <> ?
	AND m.deleted_at IS NULL
	AND NOT EXISTS (
		SELECT 1 FROM message_reads mr
		WHERE mr.message_id = m.id AND mr.user_id = ?
	)
`, userID, at, conversationID, userID, userID).Error
}

func (r *repository) CreateMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) FindMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Preload("Reads").
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *repository) LastMessages(ctx context.Context, conversationIDs []string) (map[string]Message, error) {
	if len(conversationIDs) == 0 {
		return map[string]Message{}, nil
	}

	var msgs []Message
	err := r.db.WithContext(ctx).
		Raw(`
SELECT DISTINCT ON (conversation_id) *
FROM messages
WHERE conversation_id IN ? AND deleted_at IS NULL
ORDER BY conversation_id, created_at DESC
`, conversationIDs).
		Scan(&msgs).Error
	if err != nil {
		return nil, err
	}

	last := make(map[string]Message, len(msgs))
	for _, m := range msgs {
		last[m.ConversationID.String()] = m
	}
	return last, nil
}

func (r *repository) FindUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []user.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	return users, err
}
