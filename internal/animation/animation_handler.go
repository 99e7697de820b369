package animation

import (
	"io"
	"mime/multipart"
	"net/http"

	animationerrors "hr-collab/internal/animation/errors"
	"hr-collab/internal/shared/apperror"
	"hr-collab/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("animation.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("animation.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("animation request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// readUpload pulls the "animation" multipart field, bounded at the 2MB cap
// so an oversized body never lands in memory.
func readUpload(c *gin.Context) (UploadInput, error) {
	fileHeader, err := c.FormFile("animation")
	if err != nil {
		return UploadInput{}, animationerrors.ErrFileRequired
	}
	if fileHeader.Size > MaxFileSize {
		return UploadInput{}, animationerrors.ErrFileTooLarge
	}
	return decodeUpload(fileHeader)
}

func decodeUpload(fileHeader *multipart.FileHeader) (UploadInput, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return UploadInput{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return UploadInput{}, err
	}
	if int64(len(content)) > MaxFileSize {
		return UploadInput{}, animationerrors.ErrFileTooLarge
	}

	return UploadInput{
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  content,
	}, nil
}

func (h *Handler) Upload(c *gin.Context) {
	employeeID := c.GetString("employee_id")

	in, err := readUpload(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.Upload(c.Request.Context(), employeeID, in)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Animation uploaded successfully", resp)
}

func (h *Handler) Get(c *gin.Context) {
	employeeID := c.GetString("employee_id")

	resp, err := h.service.Get(c.Request.Context(), employeeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Delete(c *gin.Context) {
	employeeID := c.GetString("employee_id")

	if err := h.service.Delete(c.Request.Context(), employeeID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Animation deleted successfully", gin.H{
		"has_custom_animation": false,
	})
}

func (h *Handler) Validate(c *gin.Context) {
	in, err := readUpload(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	info, err := h.service.Validate(in)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Animation file is valid", info)
}

func (h *Handler) ListAll(c *gin.Context) {
	companyID := c.GetString("company_id")

	resp, err := h.service.ListAll(c.Request.Context(), companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
