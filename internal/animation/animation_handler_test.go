package animation_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"hr-collab/internal/animation"
	animationerrors "hr-collab/internal/animation/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	uploadFn   func(ctx context.Context, employeeID string, in animation.UploadInput) (animation.UploadResponse, error)
	getFn      func(ctx context.Context, employeeID string) (animation.AnimationResponse, error)
	deleteFn   func(ctx context.Context, employeeID string) error
	validateFn func(in animation.UploadInput) (animation.LottieInfo, error)
	listAllFn  func(ctx context.Context, companyID string) (animation.ListResponse, error)
}

func (f *fakeService) Upload(ctx context.Context, employeeID string, in animation.UploadInput) (animation.UploadResponse, error) {
	return f.uploadFn(ctx, employeeID, in)
}
func (f *fakeService) Get(ctx context.Context, employeeID string) (animation.AnimationResponse, error) {
	return f.getFn(ctx, employeeID)
}
func (f *fakeService) Delete(ctx context.Context, employeeID string) error {
	return f.deleteFn(ctx, employeeID)
}
func (f *fakeService) Validate(in animation.UploadInput) (animation.LottieInfo, error) {
	return f.validateFn(in)
}
func (f *fakeService) ListAll(ctx context.Context, companyID string) (animation.ListResponse, error) {
	return f.listAllFn(ctx, companyID)
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	assert.NoError(t, err)
	_, _ = fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	employeeID := uuid.New().String()

	svc := &fakeService{
		uploadFn: func(ctx context.Context, eid string, in animation.UploadInput) (animation.UploadResponse, error) {
			assert.Equal(t, employeeID, eid)
			assert.Equal(t, "wave.json", in.FileName)
			return animation.UploadResponse{AnimationPath: "animations/employees/x/y.json"}, nil
		},
	}
	h := animation.NewHandler(svc)

	body, contentType := multipartUpload(t, "animation", "wave.json", `{"v":"5.7.4"}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("employee_id", employeeID)
	c.Request = httptest.NewRequest(http.MethodPost, "/animations", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Upload(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"success\":true")
}

func TestHandler_Upload_MissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := animation.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/animations", nil)

	h.Upload(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_Upload_InvalidLottie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		uploadFn: func(ctx context.Context, eid string, in animation.UploadInput) (animation.UploadResponse, error) {
			return animation.UploadResponse{}, animationerrors.ErrNotLottie
		},
	}
	h := animation.NewHandler(svc)

	body, contentType := multipartUpload(t, "animation", "x.json", `{"w":512}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/animations", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Upload(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "\"success\":false")
}

func TestHandler_Get(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		getFn: func(ctx context.Context, eid string) (animation.AnimationResponse, error) {
			return animation.AnimationResponse{HasCustomAnimation: false}, nil
		},
	}
	h := animation.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodGet, "/animations/me", nil)

	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"has_custom_animation\":false")
}
