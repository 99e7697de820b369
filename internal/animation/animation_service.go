package animation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	animationerrors "hr-collab/internal/animation/errors"
	"hr-collab/internal/employee"
	"hr-collab/internal/shared/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const MaxFileSize = 2 << 20 // 2MB

//go:generate mockgen -source=animation_service.go -destination=mock/animation_service_mock.go -package=mock
type Service interface {
	Upload(ctx context.Context, employeeID string, in UploadInput) (UploadResponse, error)
	Get(ctx context.Context, employeeID string) (AnimationResponse, error)
	Delete(ctx context.Context, employeeID string) error
	Validate(in UploadInput) (LottieInfo, error)
	ListAll(ctx context.Context, companyID string) (ListResponse, error)
}

type service struct {
	repo   employee.Repository
	store  storage.BlobStore
	logger *zap.Logger
}

func NewService(repo employee.Repository, store storage.BlobStore, logger ...*zap.Logger) Service {
	l := zap.L().Named("animation.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("animation.service")
	}
	return &service{repo: repo, store: store, logger: l}
}

// parseLottie validates the payload is JSON carrying the Lottie version
// marker and pulls the document header fields.
func parseLottie(in UploadInput) (map[string]any, error) {
	if len(in.Content) == 0 {
		return nil, animationerrors.ErrFileRequired
	}
	if in.Size > MaxFileSize || int64(len(in.Content)) > MaxFileSize {
		return nil, animationerrors.ErrFileTooLarge
	}

	var doc map[string]any
	if err := json.Unmarshal(in.Content, &doc); err != nil {
		return nil, animationerrors.ErrNotJSON
	}
	if _, ok := doc["v"]; !ok {
		return nil, animationerrors.ErrNotLottie
	}
	return doc, nil
}

func (s *service) Upload(ctx context.Context, employeeID string, in UploadInput) (UploadResponse, error) {
	if _, err := parseLottie(in); err != nil {
		s.logger.Warn("animation upload rejected",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return UploadResponse{}, err
	}

	empl, err := s.repo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UploadResponse{}, animationerrors.ErrEmployeeNotFound
		}
		return UploadResponse{}, err
	}

	// Replace semantics: the old file goes before the new record lands.
	if empl.CustomAnimationPath != nil {
		if err := s.store.Delete(*empl.CustomAnimationPath); err != nil {
			s.logger.Warn("delete previous animation failed",
				zap.String("employee_id", employeeID),
				zap.String("path", *empl.CustomAnimationPath),
				zap.Error(err),
			)
		}
	}

	path := fmt.Sprintf("animations/employees/%s/%s.json", employeeID, uuid.New().String())
	if err := s.store.Save(path, bytes.NewReader(in.Content)); err != nil {
		s.logger.Error("store animation failed", zap.String("employee_id", employeeID), zap.Error(err))
		return UploadResponse{}, err
	}

	uploadedAt := time.Now().UTC()
	if err := s.repo.UpdateAnimation(ctx, employeeID, &path, &uploadedAt); err != nil {
		s.logger.Error("update animation record failed", zap.String("employee_id", employeeID), zap.Error(err))
		return UploadResponse{}, err
	}

	s.logger.Info("animation uploaded",
		zap.String("employee_id", employeeID),
		zap.String("path", path),
		zap.Int64("size", int64(len(in.Content))),
	)

	return UploadResponse{
		AnimationURL:  s.store.URL(path),
		AnimationPath: path,
		UploadedAt:    uploadedAt.Format(time.RFC3339),
		FileSize:      int64(len(in.Content)),
	}, nil
}

func (s *service) Get(ctx context.Context, employeeID string) (AnimationResponse, error) {
	empl, err := s.repo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AnimationResponse{}, animationerrors.ErrEmployeeNotFound
		}
		return AnimationResponse{}, err
	}

	if empl.CustomAnimationPath == nil {
		return AnimationResponse{HasCustomAnimation: false}, nil
	}

	exists, err := s.store.Exists(*empl.CustomAnimationPath)
	if err != nil {
		return AnimationResponse{}, err
	}
	if !exists {
		// The file went away underneath the record; clear the stale
		// reference so the next read is clean. Capture the path first:
		// the repo may hand back shared state that UpdateAnimation mutates.
		stalePath := *empl.CustomAnimationPath
		if err := s.repo.UpdateAnimation(ctx, employeeID, nil, nil); err != nil {
			s.logger.Error("clear stale animation record failed",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
			return AnimationResponse{}, err
		}
		s.logger.Warn("stale animation record cleared",
			zap.String("employee_id", employeeID),
			zap.String("path", stalePath),
		)
		return AnimationResponse{HasCustomAnimation: false}, nil
	}

	url := s.store.URL(*empl.CustomAnimationPath)
	var uploadedAt *string
	if empl.AnimationUploadedAt != nil {
		v := empl.AnimationUploadedAt.Format(time.RFC3339)
		uploadedAt = &v
	}

	return AnimationResponse{
		HasCustomAnimation: true,
		AnimationURL:       &url,
		AnimationPath:      empl.CustomAnimationPath,
		UploadedAt:         uploadedAt,
	}, nil
}

func (s *service) Delete(ctx context.Context, employeeID string) error {
	empl, err := s.repo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return animationerrors.ErrEmployeeNotFound
		}
		return err
	}

	if empl.CustomAnimationPath == nil {
		return nil
	}

	// Already-missing files are fine; the record clear is what matters.
	if err := s.store.Delete(*empl.CustomAnimationPath); err != nil {
		s.logger.Warn("delete animation file failed",
			zap.String("employee_id", employeeID),
			zap.String("path", *empl.CustomAnimationPath),
			zap.Error(err),
		)
	}

	if err := s.repo.UpdateAnimation(ctx, employeeID, nil, nil); err != nil {
		return err
	}

	s.logger.Info("animation deleted", zap.String("employee_id", employeeID))
	return nil
}

func (s *service) Validate(in UploadInput) (LottieInfo, error) {
	doc, err := parseLottie(in)
	if err != nil {
		return LottieInfo{}, err
	}

	name := "Unknown"
	if nm, ok := doc["nm"].(string); ok && nm != "" {
		name = nm
	}

	size := int64(len(in.Content))
	return LottieInfo{
		Version:    doc["v"],
		Width:      doc["w"],
		Height:     doc["h"],
		Frames:     doc["op"],
		FrameRate:  doc["fr"],
		Name:       name,
		FileSize:   size,
		FileSizeMB: math.Round(float64(size)/1024/1024*100) / 100,
	}, nil
}

func (s *service) ListAll(ctx context.Context, companyID string) (ListResponse, error) {
	employees, err := s.repo.FindWithAnimationByCompany(ctx, companyID)
	if err != nil {
		return ListResponse{}, err
	}

	items := make([]EmployeeAnimation, 0, len(employees))
	for _, e := range employees {
		if e.CustomAnimationPath == nil {
			continue
		}
		item := EmployeeAnimation{
			ID:           e.ID.String(),
			Name:         e.FullName,
			Email:        e.Email,
			AnimationURL: s.store.URL(*e.CustomAnimationPath),
		}
		if e.AnimationUploadedAt != nil {
			item.UploadedAt = e.AnimationUploadedAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}

	return ListResponse{Total: len(items), Employees: items}, nil
}
