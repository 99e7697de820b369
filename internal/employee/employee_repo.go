package employee

import (
	"context"
	"time"

	"hr-collab/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	FindWithAnimationByCompany(ctx context.Context, companyID string) ([]Employee, error)
	UpdateAnimation(ctx context.Context, id string, path *string, uploadedAt *time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).First(&e, "email = ?", email).Error
	return &e, err
}

func (r *repository) FindWithAnimationByCompany(ctx context.Context, companyID string) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("custom_animation_path IS NOT NULL").
		Order("animation_uploaded_at DESC").
		Find(&employees).Error
	return employees, err
}

func (r *repository) UpdateAnimation(ctx context.Context, id string, path *string, uploadedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Employee{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"custom_animation_path": path,
			"animation_uploaded_at": uploadedAt,
		}).Error
}
