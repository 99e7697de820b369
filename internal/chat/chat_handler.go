package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	chaterrors "hr-collab/internal/chat/errors"
	"hr-collab/internal/shared/apperror"
	"hr-collab/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("chat.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("chat.handler")
	}
	return &Handler{service: service, logger: l}
}

func NewHandlerWithRedis(service Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	h := NewHandler(service, logger...)
	h.rdb = rdb
	return h
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("chat request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) GetConversations(c *gin.Context) {
	companyID := c.GetString("chat_company_id")
	userID := c.GetString("user_id")

	resp, err := h.service.GetConversations(c.Request.Context(), companyID, userID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetMessages(c *gin.Context) {
	companyID := c.GetString("chat_company_id")
	userID := c.GetString("user_id")
	conversationID := c.Param("id")

	resp, err := h.service.GetMessages(c.Request.Context(), companyID, userID, conversationID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) SendMessage(c *gin.Context) {
	lockKey, _ := c.Get("idempotency_lock_key")
	cacheKey, _ := c.Get("idempotency_cache_key")

	// The in-flight lock must come off whether the send succeeds or fails,
	// otherwise a retry with the same key bounces off a stale 409.
	if h.rdb != nil {
		if lk, ok := lockKey.(string); ok && lk != "" {
			defer h.rdb.Del(c.Request.Context(), lk)
		}
	}

	companyID := c.GetString("chat_company_id")
	userID := c.GetString("user_id")
	conversationID := c.Param("id")

	var req SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("http send message bind failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	attachment, err := h.readAttachment(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.SendMessage(c.Request.Context(), companyID, userID, conversationID, req, attachment)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if h.rdb != nil {
		if ck, ok := cacheKey.(string); ok && ck != "" {
			if payload, marshalErr := json.Marshal(resp); marshalErr == nil {
				_ = h.rdb.Set(c.Request.Context(), ck, payload, 24*time.Hour).Err()
			}
		}
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Message sent", resp)
}

func (h *Handler) GetUsers(c *gin.Context) {
	companyID := c.GetString("chat_company_id")
	userID := c.GetString("user_id")

	resp, err := h.service.GetUsers(c.Request.Context(), companyID, userID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) CreateConversation(c *gin.Context) {
	companyID := c.GetString("chat_company_id")
	userID := c.GetString("user_id")

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create conversation validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.CreateConversation(c.Request.Context(), companyID, userID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Conversation created", resp)
}

// readAttachment pulls the optional multipart file. A missing file is not an
// error; a too-large one is rejected before the body is read fully.
func (h *Handler) readAttachment(c *gin.Context) (*AttachmentInput, error) {
	file, err := c.FormFile("attachment")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperror.ErrInvalidInput
	}

	if file.Size > MaxAttachmentSize {
		return nil, chaterrors.ErrAttachmentTooLarge
	}

	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > MaxAttachmentSize {
		return nil, chaterrors.ErrAttachmentTooLarge
	}

	return &AttachmentInput{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}
