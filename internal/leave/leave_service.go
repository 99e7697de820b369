package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"hr-collab/internal/employee"
	"hr-collab/internal/events"
	leaveerrors "hr-collab/internal/leave/errors"
	"hr-collab/internal/messaging/kafka"
	"hr-collab/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	GetVacationTypes(ctx context.Context, companyID, employeeID string) ([]VacationTypeResponse, error)
	Apply(ctx context.Context, companyID, employeeID string, req ApplyLeaveRequest) (LeaveResponse, error)
	GetHistory(ctx context.Context, employeeID string, filter HistoryFilter) ([]LeaveResponse, int64, error)
	GetBalance(ctx context.Context, companyID, employeeID string) (BalanceResponse, error)
	Cancel(ctx context.Context, employeeID, id string) (LeaveResponse, error)
	GetDetails(ctx context.Context, employeeID, id string) (LeaveResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	outbox    kafka.OutboxRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(db *sql.DB, repo Repository, employees employee.Repository, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, employees, nil, logger...)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		employees: employees,
		outbox:    outboxRepo,
		logger:    l,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) GetVacationTypes(ctx context.Context, companyID, employeeID string) ([]VacationTypeResponse, error) {
	empl, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaveerrors.ErrEmployeeNotFound
		}
		return nil, err
	}

	types, err := s.repo.ActiveVacationTypes(ctx, companyID)
	if err != nil {
		return nil, err
	}

	tenure := empl.TenureMonths(s.now())
	resp := make([]VacationTypeResponse, len(types))
	for i, v := range types {
		resp[i] = VacationTypeResponse{
			ID:                 v.ID.String(),
			Name:               v.Name,
			Description:        v.Description,
			Balance:            v.Balance,
			UnlockAfterMonths:  v.UnlockAfterMonths,
			RequiredDaysBefore: v.RequiredDaysBefore,
			RequiresApproval:   v.RequiresApproval,
			IsAvailable:        v.AvailableFor(tenure),
		}
	}
	return resp, nil
}

func (s *service) Apply(ctx context.Context, companyID, employeeID string, req ApplyLeaveRequest) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("apply leave requested",
		zap.String("request_id", rid),
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
		zap.String("vacation_type_id", req.VacationTypeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidEmployeeID
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	if startDate.After(endDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if startDate.Before(today) {
		return LeaveResponse{}, leaveerrors.ErrStartDateInPast
	}

	empl, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrEmployeeNotFound
		}
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("apply leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	vt, err := qtx.FindVacationType(ctx, companyID, req.VacationTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrVacationTypeNotAvailable
		}
		return LeaveResponse{}, err
	}
	if !vt.AvailableFor(empl.TenureMonths(now)) {
		s.logger.Warn("apply leave vacation type not available",
			zap.String("employee_id", employeeID),
			zap.String("vacation_type_id", req.VacationTypeID),
		)
		return LeaveResponse{}, leaveerrors.ErrVacationTypeNotAvailable
	}
	if vt.RequiredDaysBefore > 0 {
		earliest := today.AddDate(0, 0, vt.RequiredDaysBefore)
		if startDate.Before(earliest) {
			return LeaveResponse{}, leaveerrors.ErrNoticePeriod
		}
	}

	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1
	l := &LeaveRequest{
		ID:             uuid.New(),
		CompanyID:      empl.CompanyID,
		EmployeeID:     employeeUUID,
		RequestKind:    KindVacation,
		VacationTypeID: vt.ID,
		Status:         StatusPending,
		StartDate:      startDate,
		EndDate:        endDate,
		TotalDays:      totalDays,
		Reason:         req.Reason,
		RequestDate:    now,
	}

	if err := qtx.CreateRequest(ctx, l); err != nil {
		s.logger.Error("apply leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if s.outbox != nil {
		event := events.LeaveRequestedEvent{
			EventType:      "leave_requested",
			RequestID:      rid,
			LeaveRequestID: l.ID.String(),
			EmployeeID:     employeeID,
			CompanyID:      l.CompanyID.String(),
			VacationType:   vt.Name,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			TotalDays:      totalDays,
			OccurredAt:     now,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return LeaveResponse{}, err
		}
		outboxEvent := kafka.OutboxEvent{
			ID:            uuid.New().String(),
			RequestID:     rid,
			AggregateType: "leave_request",
			AggregateID:   l.ID.String(),
			EventType:     event.EventType,
			Topic:         events.LeaveRequestTopic,
			Payload:       payload,
			Status:        kafka.OutboxStatusPending,
		}
		if err := s.outbox.WithTx(tx).Create(ctx, outboxEvent); err != nil {
			s.logger.Error("apply leave outbox append failed", zap.Error(err))
			return LeaveResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("apply leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	s.logger.Info("apply leave success",
		zap.String("leave_request_id", l.ID.String()),
		zap.String("employee_id", employeeID),
		zap.Int("total_days", totalDays),
	)

	l.VacationType = vt
	return s.mapToResponse(l), nil
}

func (s *service) GetHistory(ctx context.Context, employeeID string, filter HistoryFilter) ([]LeaveResponse, int64, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, leaveerrors.ErrInvalidStatusFilter
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 15
	}

	requests, total, err := s.repo.FindRequests(ctx, employeeID, filter.Status, filter.PerPage, (filter.Page-1)*filter.PerPage)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]LeaveResponse, len(requests))
	for i := range requests {
		resp[i] = s.mapToResponse(&requests[i])
	}
	return resp, total, nil
}

func (s *service) GetBalance(ctx context.Context, companyID, employeeID string) (BalanceResponse, error) {
	empl, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BalanceResponse{}, leaveerrors.ErrEmployeeNotFound
		}
		return BalanceResponse{}, err
	}

	now := s.now()
	year := now.Year()

	used, err := s.repo.ApprovedDaysByType(ctx, employeeID, year)
	if err != nil {
		return BalanceResponse{}, err
	}

	types, err := s.repo.ActiveVacationTypes(ctx, companyID)
	if err != nil {
		return BalanceResponse{}, err
	}

	tenure := empl.TenureMonths(now)
	balances := make([]TypeBalance, len(types))
	totalRemaining := 0
	for i, v := range types {
		usedDays := used[v.ID.String()]
		remaining := v.Balance - usedDays
		if remaining < 0 {
			remaining = 0
		}
		available := v.AvailableFor(tenure)
		balances[i] = TypeBalance{
			ID:            v.ID.String(),
			Name:          v.Name,
			TotalBalance:  v.Balance,
			UsedDays:      usedDays,
			RemainingDays: remaining,
			IsAvailable:   available,
		}
		if available {
			totalRemaining += remaining
		}
	}

	return BalanceResponse{
		Balances:       balances,
		TotalRemaining: totalRemaining,
		Year:           year,
	}, nil
}

func (s *service) Cancel(ctx context.Context, employeeID, id string) (LeaveResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("cancel leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindRequestByIDAndEmployee(ctx, employeeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}

	if !l.CanBeCancelled(s.now()) {
		s.logger.Warn("cancel leave rejected",
			zap.String("leave_request_id", id),
			zap.String("status", l.Status),
		)
		return LeaveResponse{}, leaveerrors.ErrNotCancellable
	}

	l.Status = StatusCancelled
	if err := qtx.UpdateRequest(ctx, l); err != nil {
		s.logger.Error("cancel leave persist failed", zap.String("leave_request_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("cancel leave commit failed", zap.String("leave_request_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	s.logger.Info("cancel leave success", zap.String("leave_request_id", id))
	return s.mapToResponse(l), nil
}

func (s *service) GetDetails(ctx context.Context, employeeID, id string) (LeaveResponse, error) {
	l, err := s.repo.FindRequestByIDAndEmployee(ctx, employeeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	return s.mapToResponse(l), nil
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func (s *service) mapToResponse(l *LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:           l.ID.String(),
		StartDate:    l.StartDate.Format("2006-01-02"),
		EndDate:      l.EndDate.Format("2006-01-02"),
		TotalDays:    l.TotalDays,
		Status:       l.Status,
		Reason:       l.Reason,
		AdminNotes:   l.AdminNotes,
		RequestDate:  l.RequestDate.Format("2006-01-02"),
		ApproverName: l.ApproverName,
		CanCancel:    l.CanBeCancelled(s.now()),
	}
	if l.VacationType != nil {
		resp.VacationType = &VacationTypeRef{
			ID:          l.VacationType.ID.String(),
			Name:        l.VacationType.Name,
			Description: l.VacationType.Description,
		}
	}
	if l.ApprovedAt != nil {
		v := l.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	return resp
}
