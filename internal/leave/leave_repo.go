package leave

import (
	"context"
	"database/sql"
	"time"

	"hr-collab/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	ActiveVacationTypes(ctx context.Context, companyID string) ([]VacationType, error)
	FindVacationType(ctx context.Context, companyID, id string) (*VacationType, error)

	CreateRequest(ctx context.Context, l *LeaveRequest) error
	FindRequests(ctx context.Context, employeeID string, status string, limit, offset int) ([]LeaveRequest, int64, error)
	FindRequestByIDAndEmployee(ctx context.Context, employeeID, id string) (*LeaveRequest, error)
	UpdateRequest(ctx context.Context, l *LeaveRequest) error
	ApprovedDaysByType(ctx context.Context, employeeID string, year int) (map[string]int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx rebinds the session onto the open transaction so the leave insert
// commits and rolls back together with the outbox append.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	session := r.db.Session(&gorm.Session{NewDB: true})
	session.Statement.ConnPool = tx
	return &repository{db: session}
}

func (r *repository) ActiveVacationTypes(ctx context.Context, companyID string) ([]VacationType, error) {
	var types []VacationType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("status = ?", true).
		Order("name ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) FindVacationType(ctx context.Context, companyID, id string) (*VacationType, error) {
	var v VacationType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *repository) CreateRequest(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindRequests(ctx context.Context, employeeID string, status string, limit, offset int) ([]LeaveRequest, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("request_kind = ?", KindVacation)

	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []LeaveRequest
	err := q.Preload("VacationType").
		Order("request_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, total, err
}

func (r *repository) FindRequestByIDAndEmployee(ctx context.Context, employeeID, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Where("request_kind = ?", KindVacation).
		Preload("VacationType").
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) UpdateRequest(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *repository) ApprovedDaysByType(ctx context.Context, employeeID string, year int) (map[string]int, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	type row struct {
		VacationTypeID string
		UsedDays       int
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("vacation_type_id, SUM(total_days) AS used_days").
		Where("employee_id = ?", employeeID).
		Where("request_kind = ?", KindVacation).
		Where("status = ?", StatusApproved).
		Where("start_date >= ? AND start_date < ?", yearStart, yearEnd).
		Group("vacation_type_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	used := make(map[string]int, len(rows))
	for _, r := range rows {
		used[r.VacationTypeID] = r.UsedDays
	}
	return used, nil
}
