package chat

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	chaterrors "hr-collab/internal/chat/errors"
	"hr-collab/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeChatRepo struct {
	findConversationsByUserFn        func(ctx context.Context, companyID, userID string) ([]Conversation, error)
	findPrivateConversationsByUserFn func(ctx context.Context, companyID, userID string) ([]Conversation, error)
	findConversationByIDFn           func(ctx context.Context, companyID, id string) (*Conversation, error)
	createConversationFn             func(ctx context.Context, conv *Conversation) error
	touchLastMessageAtFn             func(ctx context.Context, conversationID string, at time.Time) error
	incrementUnreadFn                func(ctx context.Context, conversationID, excludeUserID string) error
	markConversationReadFn           func(ctx context.Context, conversationID, userID string, at time.Time) error
	createMessageFn                  func(ctx context.Context, m *Message) error
	findMessagesFn                   func(ctx context.Context, conversationID string) ([]Message, error)
	lastMessagesFn                   func(ctx context.Context, conversationIDs []string) (map[string]Message, error)
	findUsersByIDsFn                 func(ctx context.Context, ids []string) ([]user.User, error)
}

func (f *fakeChatRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeChatRepo) FindConversationsByUser(ctx context.Context, companyID, userID string) ([]Conversation, error) {
	return f.findConversationsByUserFn(ctx, companyID, userID)
}
func (f *fakeChatRepo) FindPrivateConversationsByUser(ctx context.Context, companyID, userID string) ([]Conversation, error) {
	return f.findPrivateConversationsByUserFn(ctx, companyID, userID)
}
func (f *fakeChatRepo) FindConversationByID(ctx context.Context, companyID, id string) (*Conversation, error) {
	return f.findConversationByIDFn(ctx, companyID, id)
}
func (f *fakeChatRepo) CreateConversation(ctx context.Context, conv *Conversation) error {
	return f.createConversationFn(ctx, conv)
}
func (f *fakeChatRepo) TouchLastMessageAt(ctx context.Context, conversationID string, at time.Time) error {
	return f.touchLastMessageAtFn(ctx, conversationID, at)
}
func (f *fakeChatRepo) IncrementUnread(ctx context.Context, conversationID, excludeUserID string) error {
	return f.incrementUnreadFn(ctx, conversationID, excludeUserID)
}
func (f *fakeChatRepo) MarkConversationRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	return f.markConversationReadFn(ctx, conversationID, userID, at)
}
func (f *fakeChatRepo) CreateMessage(ctx context.Context, m *Message) error {
	return f.createMessageFn(ctx, m)
}
func (f *fakeChatRepo) FindMessages(ctx context.Context, conversationID string) ([]Message, error) {
	return f.findMessagesFn(ctx, conversationID)
}
func (f *fakeChatRepo) LastMessages(ctx context.Context, conversationIDs []string) (map[string]Message, error) {
	return f.lastMessagesFn(ctx, conversationIDs)
}
func (f *fakeChatRepo) FindUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	return f.findUsersByIDsFn(ctx, ids)
}

type fakeUserRepo struct {
	users map[string]*user.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error          { return nil }
func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	return f.users[id], nil
}
func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) FindAllByCompany(ctx context.Context, companyID, excludeID string) ([]user.User, error) {
	var out []user.User
	for _, u := range f.users {
		if u.ID.String() != excludeID {
			out = append(out, *u)
		}
	}
	return out, nil
}
func (f *fakeUserRepo) Update(ctx context.Context, u *user.User) error { return nil }
func (f *fakeUserRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return nil
}

// fakeResolver maps employee ids to user ids; unknown ids pass through.
type fakeResolver struct {
	mapping map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (string, error) {
	if resolved, ok := f.mapping[id]; ok {
		return resolved, nil
	}
	return id, nil
}
func (f *fakeResolver) ResolveAll(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{})
	for _, id := range ids {
		r, _ := f.Resolve(ctx, id)
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

type fakeStore struct {
	saved map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{saved: map[string][]byte{}} }

func (f *fakeStore) Save(key string, r io.Reader) error {
	b, _ := io.ReadAll(r)
	f.saved[key] = b
	return nil
}
func (f *fakeStore) Exists(key string) (bool, error) {
	_, ok := f.saved[key]
	return ok, nil
}
func (f *fakeStore) Delete(key string) error {
	delete(f.saved, key)
	return nil
}
func (f *fakeStore) URL(key string) string { return "/storage/" + key }

type fakeBroadcaster struct {
	companyID      string
	conversationID string
	payload        *BroadcastPayload
}

func (f *fakeBroadcaster) MessageSent(ctx context.Context, companyID, conversationID string, payload BroadcastPayload) {
	f.companyID = companyID
	f.conversationID = conversationID
	f.payload = &payload
}

var chatTestNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type chatFixture struct {
	companyID uuid.UUID
	caller    *user.User
	other     *user.User
	conv      *Conversation
}

func newChatFixture() *chatFixture {
	companyID := uuid.New()
	caller := &user.User{ID: uuid.New(), CompanyID: companyID, Name: "Dina", Email: "dina@example.com"}
	other := &user.User{ID: uuid.New(), CompanyID: companyID, Name: "Rizky", Email: "rizky@example.com"}
	conv := &Conversation{
		ID:        uuid.New(),
		CompanyID: companyID,
		Type:      TypePrivate,
		CreatedBy: caller.ID,
		Participants: []ConversationParticipant{
			{ID: uuid.New(), UserID: caller.ID, Role: ParticipantRoleAdmin},
			{ID: uuid.New(), UserID: other.ID, Role: ParticipantRoleMember, UnreadCount: 0},
		},
	}
	return &chatFixture{companyID: companyID, caller: caller, other: other, conv: conv}
}

func newChatService(t *testing.T, db *sql.DB, repo Repository, users user.Repository, resolver *fakeResolver, store *fakeStore, b Broadcaster) *service {
	t.Helper()
	svc := NewService(ServiceDeps{
		DB:          db,
		Repo:        repo,
		Users:       users,
		Resolver:    resolver,
		Store:       store,
		Broadcaster: b,
	}).(*service)
	svc.now = func() time.Time { return chatTestNow }
	return svc
}

func TestService_SendMessage_RejectsEmptyAndOversized(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	svc := newChatService(t, db, &fakeChatRepo{}, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	_, err := svc.SendMessage(context.Background(), uuid.New().String(), uuid.New().String(), uuid.New().String(), SendMessageRequest{Body: "   "}, nil)
	assert.ErrorIs(t, err, chaterrors.ErrEmptyMessage)

	_, err = svc.SendMessage(context.Background(), uuid.New().String(), uuid.New().String(), uuid.New().String(), SendMessageRequest{Body: strings.Repeat("x", MaxBodyLength+1)}, nil)
	assert.ErrorIs(t, err, chaterrors.ErrBodyTooLong)

	_, err = svc.SendMessage(context.Background(), uuid.New().String(), uuid.New().String(), uuid.New().String(), SendMessageRequest{Body: "hi"}, &AttachmentInput{Size: MaxAttachmentSize + 1})
	assert.ErrorIs(t, err, chaterrors.ErrAttachmentTooLarge)
}

func TestService_SendMessage_Broadcasts(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	var incrementedFor string
	repo := &fakeChatRepo{
		findConversationByIDFn: func(ctx context.Context, cid, id string) (*Conversation, error) { return fx.conv, nil },
		createMessageFn:        func(ctx context.Context, m *Message) error { return nil },
		incrementUnreadFn: func(ctx context.Context, cid, exclude string) error {
			incrementedFor = exclude
			return nil
		},
		touchLastMessageAtFn: func(ctx context.Context, cid string, at time.Time) error { return nil },
	}
	users := &fakeUserRepo{users: map[string]*user.User{fx.caller.ID.String(): fx.caller}}
	broadcaster := &fakeBroadcaster{}

	svc := newChatService(t, db, repo, users, &fakeResolver{}, newFakeStore(), broadcaster)

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.SendMessage(context.Background(), fx.companyID.String(), fx.caller.ID.String(), fx.conv.ID.String(), SendMessageRequest{Body: "halo"}, nil)

	assert.NoError(t, err)
	assert.True(t, resp.IsMine)
	assert.Nil(t, resp.ReadAt)
	assert.Equal(t, "Dina", resp.UserName)
	assert.Equal(t, fx.caller.ID.String(), incrementedFor)

	assert.NotNil(t, broadcaster.payload)
	assert.Equal(t, fx.companyID.String(), broadcaster.companyID)
	assert.Equal(t, fx.conv.ID.String(), broadcaster.conversationID)
	assert.Equal(t, "halo", broadcaster.payload.Body)
	assert.Equal(t, fx.caller.ID.String(), broadcaster.payload.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_SendMessage_StoresAttachment(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	var created Message
	repo := &fakeChatRepo{
		findConversationByIDFn: func(ctx context.Context, cid, id string) (*Conversation, error) { return fx.conv, nil },
		createMessageFn:        func(ctx context.Context, m *Message) error { created = *m; return nil },
		incrementUnreadFn:      func(ctx context.Context, cid, exclude string) error { return nil },
		touchLastMessageAtFn:   func(ctx context.Context, cid string, at time.Time) error { return nil },
	}
	users := &fakeUserRepo{users: map[string]*user.User{fx.caller.ID.String(): fx.caller}}
	store := newFakeStore()

	svc := newChatService(t, db, repo, users, &fakeResolver{}, store, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.SendMessage(context.Background(), fx.companyID.String(), fx.caller.ID.String(), fx.conv.ID.String(),
		SendMessageRequest{},
		&AttachmentInput{FileName: "photo.png", ContentType: "image/png", Size: 4, Content: []byte("data")},
	)

	assert.NoError(t, err)
	assert.Equal(t, AttachmentImage, *created.AttachmentType)
	assert.Equal(t, "photo.png", *created.AttachmentName)
	assert.True(t, strings.HasPrefix(*created.AttachmentPath, "chat-attachments/"))
	assert.Contains(t, *created.AttachmentPath, "_photo.png")
	assert.Len(t, store.saved, 1)
	assert.NotNil(t, resp.AttachmentURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentType(t *testing.T) {
	assert.Equal(t, AttachmentVoice, attachmentType("voice", "audio/ogg"))
	assert.Equal(t, AttachmentImage, attachmentType("", "image/png"))
	assert.Equal(t, AttachmentVideo, attachmentType("", "video/mp4"))
	assert.Equal(t, AttachmentAudio, attachmentType("", "audio/mpeg"))
	assert.Equal(t, AttachmentDocument, attachmentType("", "application/pdf"))
	assert.Equal(t, AttachmentDocument, attachmentType("sticker", "application/zip"))
}

func TestService_SendMessage_NonMemberGets404(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	stranger := uuid.New()
	repo := &fakeChatRepo{
		findConversationByIDFn: func(ctx context.Context, cid, id string) (*Conversation, error) { return fx.conv, nil },
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	_, err := svc.SendMessage(context.Background(), fx.companyID.String(), stranger.String(), fx.conv.ID.String(), SendMessageRequest{Body: "hi"}, nil)
	assert.ErrorIs(t, err, chaterrors.ErrConversationNotFound)
}

func TestService_GetMessages_ReadReceiptOnlyOnOwnMessages(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	readAt := chatTestNow.Add(-time.Hour)
	mine := Message{
		ID:             uuid.New(),
		ConversationID: fx.conv.ID,
		SenderID:       fx.caller.ID,
		Body:           "mine",
		CreatedAt:      chatTestNow.Add(-2 * time.Hour),
		Reads: []MessageRead{
			{UserID: fx.other.ID, ReadAt: readAt},
			{UserID: fx.caller.ID, ReadAt: chatTestNow},
		},
	}
	theirs := Message{
		ID:             uuid.New(),
		ConversationID: fx.conv.ID,
		SenderID:       fx.other.ID,
		Body:           "theirs",
		CreatedAt:      chatTestNow.Add(-time.Hour),
		Reads: []MessageRead{
			{UserID: fx.caller.ID, ReadAt: chatTestNow},
		},
	}

	markedRead := false
	repo := &fakeChatRepo{
		findConversationByIDFn: func(ctx context.Context, cid, id string) (*Conversation, error) { return fx.conv, nil },
		markConversationReadFn: func(ctx context.Context, cid, uid string, at time.Time) error {
			markedRead = true
			assert.Equal(t, fx.caller.ID.String(), uid)
			return nil
		},
		findMessagesFn: func(ctx context.Context, cid string) ([]Message, error) {
			return []Message{mine, theirs}, nil
		},
		findUsersByIDsFn: func(ctx context.Context, ids []string) ([]user.User, error) {
			return []user.User{*fx.caller, *fx.other}, nil
		},
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	resp, err := svc.GetMessages(context.Background(), fx.companyID.String(), fx.caller.ID.String(), fx.conv.ID.String())
	assert.NoError(t, err)
	assert.True(t, markedRead)
	assert.Len(t, resp, 2)

	assert.True(t, resp[0].IsMine)
	assert.NotNil(t, resp[0].ReadAt)
	assert.Equal(t, readAt.Format(time.RFC3339), *resp[0].ReadAt)

	assert.False(t, resp[1].IsMine)
	assert.Nil(t, resp[1].ReadAt)
	assert.Equal(t, "Rizky", resp[1].UserName)
}

func TestService_GetConversations_PresenceAndPreview(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	lastSeen := chatTestNow.Add(-2 * time.Minute)
	fx.other.LastSeenAt = &lastSeen
	lastMsgAt := chatTestNow.Add(-time.Minute)
	fx.conv.LastMessageAt = &lastMsgAt
	fx.conv.Participants[0].UnreadCount = 3

	attType := AttachmentImage
	attPath := "chat-attachments/1_x.png"
	repo := &fakeChatRepo{
		findConversationsByUserFn: func(ctx context.Context, cid, uid string) ([]Conversation, error) {
			return []Conversation{*fx.conv}, nil
		},
		lastMessagesFn: func(ctx context.Context, ids []string) (map[string]Message, error) {
			return map[string]Message{
				fx.conv.ID.String(): {
					ID:             uuid.New(),
					ConversationID: fx.conv.ID,
					SenderID:       fx.other.ID,
					AttachmentType: &attType,
					AttachmentPath: &attPath,
				},
			}, nil
		},
		findUsersByIDsFn: func(ctx context.Context, ids []string) ([]user.User, error) {
			return []user.User{*fx.other}, nil
		},
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	resp, err := svc.GetConversations(context.Background(), fx.companyID.String(), fx.caller.ID.String())
	assert.NoError(t, err)
	assert.Len(t, resp, 1)
	assert.Equal(t, "Rizky", resp[0].Name)
	assert.NotNil(t, resp[0].IsOnline)
	assert.True(t, *resp[0].IsOnline)
	assert.Equal(t, 3, resp[0].UnreadCount)
	assert.Equal(t, "attachment: image", resp[0].LastMessagePreview)
	assert.NotNil(t, resp[0].LastMessageAt)
}

func TestService_GetConversations_OfflineAfterWindow(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	lastSeen := chatTestNow.Add(-OnlineWindow - time.Minute)
	fx.other.LastSeenAt = &lastSeen

	repo := &fakeChatRepo{
		findConversationsByUserFn: func(ctx context.Context, cid, uid string) ([]Conversation, error) {
			return []Conversation{*fx.conv}, nil
		},
		lastMessagesFn: func(ctx context.Context, ids []string) (map[string]Message, error) {
			return map[string]Message{}, nil
		},
		findUsersByIDsFn: func(ctx context.Context, ids []string) ([]user.User, error) {
			return []user.User{*fx.other}, nil
		},
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	resp, err := svc.GetConversations(context.Background(), fx.companyID.String(), fx.caller.ID.String())
	assert.NoError(t, err)
	assert.False(t, *resp[0].IsOnline)
}

func TestService_CreateConversation_DedupesBothDirections(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	// The recipient is addressed by employee id; the resolver collapses it
	// to the login-account id that already sits in the conversation.
	employeeID := uuid.New().String()
	resolver := &fakeResolver{mapping: map[string]string{employeeID: fx.other.ID.String()}}

	repo := &fakeChatRepo{
		findUsersByIDsFn: func(ctx context.Context, ids []string) ([]user.User, error) {
			return []user.User{*fx.caller, *fx.other}, nil
		},
		findPrivateConversationsByUserFn: func(ctx context.Context, cid, uid string) ([]Conversation, error) {
			return []Conversation{*fx.conv}, nil
		},
		createConversationFn: func(ctx context.Context, conv *Conversation) error {
			t.Fatal("dedup path must not create a new conversation")
			return nil
		},
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, resolver, newFakeStore(), nil)

	// caller → recipient
	resp, err := svc.CreateConversation(context.Background(), fx.companyID.String(), fx.caller.ID.String(), CreateConversationRequest{
		RecipientIDs: []string{employeeID},
	})
	assert.NoError(t, err)
	assert.Equal(t, fx.conv.ID.String(), resp.ID)

	// recipient → caller resolves to the same conversation
	resp2, err := svc.CreateConversation(context.Background(), fx.companyID.String(), fx.other.ID.String(), CreateConversationRequest{
		RecipientIDs: []string{fx.caller.ID.String()},
	})
	assert.NoError(t, err)
	assert.Equal(t, resp.ID, resp2.ID)
}

func TestService_CreateConversation_NewPrivateAndGroup(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	third := &user.User{ID: uuid.New(), CompanyID: fx.companyID, Name: "Sari", Email: "sari@example.com"}

	var created *Conversation
	repo := &fakeChatRepo{
		findUsersByIDsFn: func(ctx context.Context, ids []string) ([]user.User, error) {
			return []user.User{*fx.caller, *fx.other, *third}, nil
		},
		findPrivateConversationsByUserFn: func(ctx context.Context, cid, uid string) ([]Conversation, error) {
			return nil, nil
		},
		createConversationFn: func(ctx context.Context, conv *Conversation) error {
			created = conv
			return nil
		},
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	resp, err := svc.CreateConversation(context.Background(), fx.companyID.String(), fx.caller.ID.String(), CreateConversationRequest{
		RecipientIDs: []string{fx.other.ID.String()},
	})
	assert.NoError(t, err)
	assert.Equal(t, TypePrivate, resp.Type)
	assert.Len(t, created.Participants, 2)
	assert.Equal(t, ParticipantRoleAdmin, created.Participants[0].Role)

	resp, err = svc.CreateConversation(context.Background(), fx.companyID.String(), fx.caller.ID.String(), CreateConversationRequest{
		RecipientIDs: []string{fx.other.ID.String(), third.ID.String()},
		Name:         "Project X",
	})
	assert.NoError(t, err)
	assert.Equal(t, TypeGroup, resp.Type)
	assert.Equal(t, "Project X", resp.Name)
	assert.Len(t, created.Participants, 3)
}

func TestService_CreateConversation_RejectsPrivateWithThree(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	third := &user.User{ID: uuid.New(), CompanyID: fx.companyID, Name: "Sari", Email: "sari@example.com"}

	repo := &fakeChatRepo{
		findUsersByIDsFn: func(ctx context.Context, ids []string) ([]user.User, error) {
			return []user.User{*fx.caller, *fx.other, *third}, nil
		},
		createConversationFn: func(ctx context.Context, conv *Conversation) error {
			t.Fatal("a private conversation with three members must not be created")
			return nil
		},
	}
	svc := newChatService(t, db, repo, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	_, err := svc.CreateConversation(context.Background(), fx.companyID.String(), fx.caller.ID.String(), CreateConversationRequest{
		RecipientIDs: []string{fx.other.ID.String(), third.ID.String()},
		Type:         TypePrivate,
	})
	assert.ErrorIs(t, err, chaterrors.ErrTooManyParticipants)
}

func TestService_CreateConversation_RejectsSelfOnly(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	fx := newChatFixture()
	svc := newChatService(t, db, &fakeChatRepo{}, &fakeUserRepo{}, &fakeResolver{}, newFakeStore(), nil)

	_, err := svc.CreateConversation(context.Background(), fx.companyID.String(), fx.caller.ID.String(), CreateConversationRequest{
		RecipientIDs: []string{fx.caller.ID.String()},
	})
	assert.ErrorIs(t, err, chaterrors.ErrNoRecipients)
}
