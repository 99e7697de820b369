package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hr-collab/internal/chat"
	chaterrors "hr-collab/internal/chat/errors"
	"hr-collab/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	getConversationsFn   func(ctx context.Context, companyID, userID string) ([]chat.ConversationResponse, error)
	getMessagesFn        func(ctx context.Context, companyID, userID, conversationID string) ([]chat.MessageResponse, error)
	sendMessageFn        func(ctx context.Context, companyID, userID, conversationID string, req chat.SendMessageRequest, attachment *chat.AttachmentInput) (chat.MessageResponse, error)
	getUsersFn           func(ctx context.Context, companyID, userID string) ([]chat.ChatUserResponse, error)
	createConversationFn func(ctx context.Context, companyID, userID string, req chat.CreateConversationRequest) (chat.ConversationResponse, error)
}

func (f *fakeService) GetConversations(ctx context.Context, companyID, userID string) ([]chat.ConversationResponse, error) {
	return f.getConversationsFn(ctx, companyID, userID)
}
func (f *fakeService) GetMessages(ctx context.Context, companyID, userID, conversationID string) ([]chat.MessageResponse, error) {
	return f.getMessagesFn(ctx, companyID, userID, conversationID)
}
func (f *fakeService) SendMessage(ctx context.Context, companyID, userID, conversationID string, req chat.SendMessageRequest, attachment *chat.AttachmentInput) (chat.MessageResponse, error) {
	return f.sendMessageFn(ctx, companyID, userID, conversationID, req, attachment)
}
func (f *fakeService) GetUsers(ctx context.Context, companyID, userID string) ([]chat.ChatUserResponse, error) {
	return f.getUsersFn(ctx, companyID, userID)
}
func (f *fakeService) CreateConversation(ctx context.Context, companyID, userID string, req chat.CreateConversationRequest) (chat.ConversationResponse, error) {
	return f.createConversationFn(ctx, companyID, userID, req)
}

func TestHandler_SendMessage_JSONBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	companyID := uuid.New().String()
	userID := uuid.New().String()
	conversationID := uuid.New().String()

	svc := &fakeService{
		sendMessageFn: func(ctx context.Context, cid, uid, convID string, req chat.SendMessageRequest, attachment *chat.AttachmentInput) (chat.MessageResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, userID, uid)
			assert.Equal(t, conversationID, convID)
			assert.Equal(t, "halo", req.Body)
			assert.Nil(t, attachment)
			return chat.MessageResponse{ID: uuid.New().String(), Body: req.Body, IsMine: true}, nil
		},
	}
	h := chat.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("chat_company_id", companyID)
	c.Set("user_id", userID)
	c.Params = gin.Params{{Key: "id", Value: conversationID}}
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/conversations/x/messages", strings.NewReader(`{"body":"halo"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.SendMessage(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "\"is_mine\":true")
}

func TestHandler_SendMessage_MultipartAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("body", "with file")
	fw, _ := mw.CreateFormFile("attachment", "voice.ogg")
	_, _ = fw.Write([]byte("oggdata"))
	mw.Close()

	svc := &fakeService{
		sendMessageFn: func(ctx context.Context, cid, uid, convID string, req chat.SendMessageRequest, attachment *chat.AttachmentInput) (chat.MessageResponse, error) {
			assert.Equal(t, "with file", req.Body)
			assert.NotNil(t, attachment)
			assert.Equal(t, "voice.ogg", attachment.FileName)
			assert.Equal(t, int64(7), attachment.Size)
			return chat.MessageResponse{ID: uuid.New().String()}, nil
		},
	}
	h := chat.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("chat_company_id", uuid.New().String())
	c.Set("user_id", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/conversations/x/messages", &buf)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	h.SendMessage(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandler_SendMessage_IdempotencyWriteBack(t *testing.T) {
	gin.SetMode(gin.TestMode)

	resp := chat.MessageResponse{ID: uuid.New().String(), Body: "halo", IsMine: true}
	svc := &fakeService{
		sendMessageFn: func(ctx context.Context, cid, uid, convID string, req chat.SendMessageRequest, attachment *chat.AttachmentInput) (chat.MessageResponse, error) {
			return resp, nil
		},
	}

	rdb, mock := redismock.NewClientMock()
	h := chat.NewHandlerWithRedis(svc, rdb)

	cacheKey := "idemp:/chat/conversations/:id/messages:user-1:key-1"
	lockKey := cacheKey + ":lock"
	payload, err := json.Marshal(resp)
	assert.NoError(t, err)
	mock.ExpectSet(cacheKey, payload, 24*time.Hour).SetVal("OK")
	mock.ExpectDel(lockKey).SetVal(1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("chat_company_id", uuid.New().String())
	c.Set("user_id", uuid.New().String())
	c.Set("idempotency_cache_key", cacheKey)
	c.Set("idempotency_lock_key", lockKey)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/conversations/x/messages", strings.NewReader(`{"body":"halo"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.SendMessage(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_SendMessage_IdempotencyLockReleasedOnFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		sendMessageFn: func(ctx context.Context, cid, uid, convID string, req chat.SendMessageRequest, attachment *chat.AttachmentInput) (chat.MessageResponse, error) {
			return chat.MessageResponse{}, chaterrors.ErrConversationNotFound
		},
	}

	rdb, mock := redismock.NewClientMock()
	h := chat.NewHandlerWithRedis(svc, rdb)

	cacheKey := "idemp:/chat/conversations/:id/messages:user-1:key-1"
	lockKey := cacheKey + ":lock"
	mock.ExpectDel(lockKey).SetVal(1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("chat_company_id", uuid.New().String())
	c.Set("user_id", uuid.New().String())
	c.Set("idempotency_cache_key", cacheKey)
	c.Set("idempotency_lock_key", lockKey)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/conversations/x/messages", strings.NewReader(`{"body":"halo"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.SendMessage(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_GetMessages_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		getMessagesFn: func(ctx context.Context, cid, uid, convID string) ([]chat.MessageResponse, error) {
			return nil, chaterrors.ErrConversationNotFound
		},
	}
	h := chat.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("chat_company_id", uuid.New().String())
	c.Set("user_id", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodGet, "/chat/conversations/x/messages", nil)

	h.GetMessages(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeNotFound)
}

func TestHandler_CreateConversation_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()

	h := chat.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("chat_company_id", uuid.New().String())
	c.Set("user_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/conversations", strings.NewReader(`{"recipient_ids":[]}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateConversation(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "\"success\":false")
}
