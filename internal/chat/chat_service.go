package chat

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	chaterrors "hr-collab/internal/chat/errors"
	"hr-collab/internal/events"
	"hr-collab/internal/identity"
	"hr-collab/internal/messaging/kafka"
	"hr-collab/internal/shared/contextutil"
	"hr-collab/internal/shared/storage"
	"hr-collab/internal/user"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// MaxBodyLength is counted in characters, not bytes.
	MaxBodyLength = 2000
	// MaxAttachmentSize caps uploads at 10MB.
	MaxAttachmentSize = 10 << 20

	presenceKeyPrefix = "chat:presence:touch:"
	presenceThrottle  = time.Minute
)

//go:generate mockgen -source=chat_service.go -destination=mock/chat_service_mock.go -package=mock
type Service interface {
	GetConversations(ctx context.Context, companyID, userID string) ([]ConversationResponse, error)
	GetMessages(ctx context.Context, companyID, userID, conversationID string) ([]MessageResponse, error)
	SendMessage(ctx context.Context, companyID, userID, conversationID string, req SendMessageRequest, attachment *AttachmentInput) (MessageResponse, error)
	GetUsers(ctx context.Context, companyID, userID string) ([]ChatUserResponse, error)
	CreateConversation(ctx context.Context, companyID, userID string, req CreateConversationRequest) (ConversationResponse, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	users       user.Repository
	resolver    identity.Resolver
	store       storage.BlobStore
	outbox      kafka.OutboxRepository
	broadcaster Broadcaster
	rdb         *redis.Client
	logger      *zap.Logger
	now         func() time.Time
}

type ServiceDeps struct {
	DB          *sql.DB
	Repo        Repository
	Users       user.Repository
	Resolver    identity.Resolver
	Store       storage.BlobStore
	Outbox      kafka.OutboxRepository
	Broadcaster Broadcaster
	Redis       *redis.Client
}

func NewService(deps ServiceDeps, logger ...*zap.Logger) Service {
	l := zap.L().Named("chat.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("chat.service")
	}
	return &service{
		db:          deps.DB,
		repo:        deps.Repo,
		users:       deps.Users,
		resolver:    deps.Resolver,
		store:       deps.Store,
		outbox:      deps.Outbox,
		broadcaster: deps.Broadcaster,
		rdb:         deps.Redis,
		logger:      l,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) GetConversations(ctx context.Context, companyID, userID string) ([]ConversationResponse, error) {
	caller, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.touchPresence(ctx, caller)

	convs, err := s.repo.FindConversationsByUser(ctx, companyID, caller)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []ConversationResponse{}, nil
	}

	ids := make([]string, len(convs))
	otherIDs := make([]string, 0, len(convs))
	for i := range convs {
		ids[i] = convs[i].ID.String()
		if convs[i].Type == TypePrivate {
			if other := otherParticipant(&convs[i], caller); other != nil {
				otherIDs = append(otherIDs, other.UserID.String())
			}
		}
	}

	lastMsgs, err := s.repo.LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	usersByID, err := s.usersByID(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	resp := make([]ConversationResponse, len(convs))
	for i := range convs {
		var last *Message
		if m, ok := lastMsgs[convs[i].ID.String()]; ok {
			m := m
			last = &m
		}
		resp[i] = s.conversationResponse(&convs[i], caller, last, usersByID)
	}
	return resp, nil
}

func (s *service) GetMessages(ctx context.Context, companyID, userID, conversationID string) ([]MessageResponse, error) {
	caller, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.touchPresence(ctx, caller)

	conv, err := s.memberConversation(ctx, companyID, conversationID, caller)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkConversationRead(ctx, conv.ID.String(), caller, s.now()); err != nil {
		s.logger.Error("mark conversation read failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, err
	}

	msgs, err := s.repo.FindMessages(ctx, conv.ID.String())
	if err != nil {
		return nil, err
	}

	senderIDs := make([]string, 0, len(msgs))
	for i := range msgs {
		senderIDs = append(senderIDs, msgs[i].SenderID.String())
	}
	usersByID, err := s.usersByID(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	resp := make([]MessageResponse, len(msgs))
	for i := range msgs {
		resp[i] = s.messageResponse(&msgs[i], caller, usersByID[msgs[i].SenderID.String()])
	}
	return resp, nil
}

func (s *service) SendMessage(ctx context.Context, companyID, userID, conversationID string, req SendMessageRequest, attachment *AttachmentInput) (MessageResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	body := strings.TrimSpace(req.Body)
	if body == "" && attachment == nil {
		return MessageResponse{}, chaterrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return MessageResponse{}, chaterrors.ErrBodyTooLong
	}
	if attachment != nil && attachment.Size > MaxAttachmentSize {
		return MessageResponse{}, chaterrors.ErrAttachmentTooLarge
	}

	caller, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return MessageResponse{}, err
	}
	s.touchPresence(ctx, caller)

	conv, err := s.memberConversation(ctx, companyID, conversationID, caller)
	if err != nil {
		return MessageResponse{}, err
	}

	callerUUID, err := uuid.Parse(caller)
	if err != nil {
		return MessageResponse{}, chaterrors.ErrConversationNotFound
	}

	sender, err := s.users.FindByID(ctx, caller)
	if err != nil {
		return MessageResponse{}, err
	}

	now := s.now()
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       callerUUID,
		Body:           body,
		CreatedAt:      now,
	}

	if attachment != nil {
		attType := attachmentType(req.AttachmentType, attachment.ContentType)
		key := fmt.Sprintf("chat-attachments/%d_%s", now.Unix(), filepath.Base(attachment.FileName))
		if err := s.store.Save(key, bytes.NewReader(attachment.Content)); err != nil {
			s.logger.Error("attachment store failed", zap.String("key", key), zap.Error(err))
			return MessageResponse{}, err
		}
		name := filepath.Base(attachment.FileName)
		size := attachment.Size
		msg.AttachmentType = &attType
		msg.AttachmentName = &name
		msg.AttachmentPath = &key
		msg.AttachmentSize = &size
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("send message begin tx failed", zap.Error(err))
		return MessageResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("send message persist failed", zap.Error(err))
		return MessageResponse{}, err
	}
	if err := qtx.IncrementUnread(ctx, conv.ID.String(), caller); err != nil {
		return MessageResponse{}, err
	}
	if err := qtx.TouchLastMessageAt(ctx, conv.ID.String(), now); err != nil {
		return MessageResponse{}, err
	}

	if s.outbox != nil {
		event := events.ChatMessageSentEvent{
			EventType:      "chat_message_sent",
			RequestID:      rid,
			MessageID:      msg.ID.String(),
			ConversationID: conv.ID.String(),
			CompanyID:      companyID,
			SenderID:       caller,
			HasAttachment:  msg.HasAttachment(),
			OccurredAt:     now,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return MessageResponse{}, err
		}
		outboxEvent := kafka.OutboxEvent{
			ID:            uuid.New().String(),
			RequestID:     rid,
			AggregateType: "chat_message",
			AggregateID:   msg.ID.String(),
			EventType:     event.EventType,
			Topic:         events.ChatMessageTopic,
			Payload:       payload,
			Status:        kafka.OutboxStatusPending,
		}
		if err := s.outbox.WithTx(tx).Create(ctx, outboxEvent); err != nil {
			s.logger.Error("send message outbox append failed", zap.Error(err))
			return MessageResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("send message commit failed", zap.Error(err))
		return MessageResponse{}, err
	}

	resp := s.messageResponse(msg, caller, sender)

	if s.broadcaster != nil {
		s.broadcaster.MessageSent(ctx, companyID, conv.ID.String(), BroadcastPayload{
			ID:             resp.ID,
			Body:           resp.Body,
			UserID:         resp.UserID,
			UserName:       resp.UserName,
			UserAvatar:     resp.UserAvatar,
			CreatedAt:      resp.CreatedAt,
			AttachmentType: resp.AttachmentType,
			AttachmentName: resp.AttachmentName,
			AttachmentSize: resp.AttachmentSize,
			AttachmentURL:  resp.AttachmentURL,
			ReadAt:         resp.ReadAt,
		})
	}

	s.logger.Info("message sent",
		zap.String("request_id", rid),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("message_id", msg.ID.String()),
		zap.Bool("has_attachment", msg.HasAttachment()),
	)
	return resp, nil
}

func (s *service) GetUsers(ctx context.Context, companyID, userID string) ([]ChatUserResponse, error) {
	caller, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.touchPresence(ctx, caller)

	users, err := s.users.FindAllByCompany(ctx, companyID, caller)
	if err != nil {
		return nil, err
	}

	resp := make([]ChatUserResponse, len(users))
	for i := range users {
		resp[i] = ChatUserResponse{
			ID:    users[i].ID.String(),
			Name:  users[i].DisplayName(),
			Email: users[i].Email,
		}
	}
	return resp, nil
}

func (s *service) CreateConversation(ctx context.Context, companyID, userID string, req CreateConversationRequest) (ConversationResponse, error) {
	if len(req.RecipientIDs) == 0 {
		return ConversationResponse{}, chaterrors.ErrNoRecipients
	}

	caller, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return ConversationResponse{}, err
	}
	s.touchPresence(ctx, caller)

	// Normalize caller and every recipient; duplicates collapse here.
	memberIDs, err := s.resolver.ResolveAll(ctx, append([]string{caller}, req.RecipientIDs...))
	if err != nil {
		return ConversationResponse{}, err
	}
	if len(memberIDs) < 2 {
		return ConversationResponse{}, chaterrors.ErrNoRecipients
	}

	members, err := s.usersByID(ctx, memberIDs)
	if err != nil {
		return ConversationResponse{}, err
	}
	for _, id := range memberIDs {
		u, ok := members[id]
		if !ok || u.CompanyID.String() != companyID {
			return ConversationResponse{}, chaterrors.ErrRecipientNotFound
		}
	}

	convType := req.Type
	if convType == "" {
		convType = TypeGroup
		if len(memberIDs) == 2 {
			convType = TypePrivate
		}
	}
	if convType == TypePrivate && len(memberIDs) > 2 {
		return ConversationResponse{}, chaterrors.ErrTooManyParticipants
	}

	if convType == TypePrivate {
		existing, err := s.findPrivateDuplicate(ctx, companyID, caller, memberIDs)
		if err != nil {
			return ConversationResponse{}, err
		}
		if existing != nil {
			s.logger.Debug("private conversation deduplicated",
				zap.String("conversation_id", existing.ID.String()),
			)
			return s.conversationResponse(existing, caller, nil, members), nil
		}
	}

	callerUUID, err := uuid.Parse(caller)
	if err != nil {
		return ConversationResponse{}, chaterrors.ErrRecipientNotFound
	}
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return ConversationResponse{}, chaterrors.ErrRecipientNotFound
	}

	conv := &Conversation{
		ID:        uuid.New(),
		CompanyID: companyUUID,
		Type:      convType,
		CreatedBy: callerUUID,
	}
	if convType == TypeGroup && req.Name != "" {
		name := req.Name
		conv.Name = &name
	}

	now := s.now()
	for _, id := range memberIDs {
		memberUUID, err := uuid.Parse(id)
		if err != nil {
			return ConversationResponse{}, chaterrors.ErrRecipientNotFound
		}
		role := ParticipantRoleMember
		if id == caller {
			role = ParticipantRoleAdmin
		}
		conv.Participants = append(conv.Participants, ConversationParticipant{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			UserID:         memberUUID,
			Role:           role,
			JoinedAt:       now,
		})
	}

	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		s.logger.Error("create conversation failed", zap.Error(err))
		return ConversationResponse{}, err
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("type", convType),
		zap.Int("participants", len(conv.Participants)),
	)
	return s.conversationResponse(conv, caller, nil, members), nil
}

// memberConversation loads a conversation and verifies membership. Both a
// missing conversation and a non-member caller come back as not-found.
func (s *service) memberConversation(ctx context.Context, companyID, conversationID, caller string) (*Conversation, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, chaterrors.ErrInvalidConversationID
	}

	conv, err := s.repo.FindConversationByID(ctx, companyID, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chaterrors.ErrConversationNotFound
		}
		return nil, err
	}
	if participantOf(conv, caller) == nil {
		return nil, chaterrors.ErrConversationNotFound
	}
	return conv, nil
}

func (s *service) findPrivateDuplicate(ctx context.Context, companyID, caller string, memberIDs []string) (*Conversation, error) {
	want := append([]string(nil), memberIDs...)
	sort.Strings(want)

	existing, err := s.repo.FindPrivateConversationsByUser(ctx, companyID, caller)
	if err != nil {
		return nil, err
	}

	for i := range existing {
		got := make([]string, len(existing[i].Participants))
		for j, p := range existing[i].Participants {
			got[j] = p.UserID.String()
		}
		sort.Strings(got)
		if equalIDs(want, got) {
			return &existing[i], nil
		}
	}
	return nil, nil
}

// touchPresence updates last_seen_at at most once a minute per user. The
// Redis throttle and the column write are both best effort.
func (s *service) touchPresence(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, presenceKeyPrefix+userID, 1, presenceThrottle).Result()
		if err == nil && !ok {
			return
		}
	}
	if err := s.users.TouchLastSeen(ctx, userID, s.now()); err != nil {
		s.logger.Warn("presence touch failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *service) usersByID(ctx context.Context, ids []string) (map[string]*user.User, error) {
	users, err := s.repo.FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*user.User, len(users))
	for i := range users {
		byID[users[i].ID.String()] = &users[i]
	}
	return byID, nil
}

func (s *service) conversationResponse(conv *Conversation, caller string, last *Message, usersByID map[string]*user.User) ConversationResponse {
	resp := ConversationResponse{
		ID:   conv.ID.String(),
		Type: conv.Type,
	}

	if p := participantOf(conv, caller); p != nil {
		resp.UnreadCount = p.UnreadCount
	}

	switch conv.Type {
	case TypePrivate:
		if other := otherParticipant(conv, caller); other != nil {
			if u := usersByID[other.UserID.String()]; u != nil {
				resp.Name = u.DisplayName()
				online := u.LastSeenAt != nil && s.now().Sub(*u.LastSeenAt) <= OnlineWindow
				resp.IsOnline = &online
				if u.LastSeenAt != nil {
					seen := u.LastSeenAt.Format(time.RFC3339)
					resp.LastSeenAt = &seen
				}
			}
		}
	default:
		if conv.Name != nil {
			resp.Name = *conv.Name
		}
	}

	if last != nil {
		resp.LastMessagePreview = messagePreview(last)
	}
	if conv.LastMessageAt != nil {
		at := conv.LastMessageAt.Format(time.RFC3339)
		resp.LastMessageAt = &at
	}
	return resp
}

func (s *service) messageResponse(m *Message, caller string, sender *user.User) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Body:           m.Body,
		UserID:         m.SenderID.String(),
		AttachmentType: m.AttachmentType,
		AttachmentName: m.AttachmentName,
		AttachmentSize: m.AttachmentSize,
		IsMine:         m.SenderID.String() == caller,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
	if sender != nil {
		resp.UserName = sender.DisplayName()
		resp.UserAvatar = sender.AvatarURL
	}
	if m.AttachmentPath != nil && *m.AttachmentPath != "" {
		url := s.store.URL(*m.AttachmentPath)
		resp.AttachmentURL = &url
	}
	if resp.IsMine {
		if at := m.ReadAtForSender(); at != nil {
			v := at.Format(time.RFC3339)
			resp.ReadAt = &v
		}
	}
	return resp
}

func participantOf(conv *Conversation, userID string) *ConversationParticipant {
	for i := range conv.Participants {
		if conv.Participants[i].UserID.String() == userID {
			return &conv.Participants[i]
		}
	}
	return nil
}

func otherParticipant(conv *Conversation, userID string) *ConversationParticipant {
	for i := range conv.Participants {
		if conv.Participants[i].UserID.String() != userID {
			return &conv.Participants[i]
		}
	}
	return nil
}

func messagePreview(m *Message) string {
	if m.Body != "" {
		return m.Body
	}
	if m.AttachmentType != nil {
		return "attachment: " + *m.AttachmentType
	}
	return ""
}

// attachmentType honors the client's explicit type when it is one we know,
// otherwise falls back to the MIME major type.
func attachmentType(explicit, contentType string) string {
	switch explicit {
	case AttachmentVoice, AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentDocument:
		return explicit
	}
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(contentType, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(contentType, "audio/"):
		return AttachmentAudio
	default:
		return AttachmentDocument
	}
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
