package leave_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hr-collab/internal/leave"
	leaveerrors "hr-collab/internal/leave/errors"
	"hr-collab/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	getVacationTypesFn func(ctx context.Context, companyID, employeeID string) ([]leave.VacationTypeResponse, error)
	applyFn            func(ctx context.Context, companyID, employeeID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error)
	getHistoryFn       func(ctx context.Context, employeeID string, filter leave.HistoryFilter) ([]leave.LeaveResponse, int64, error)
	getBalanceFn       func(ctx context.Context, companyID, employeeID string) (leave.BalanceResponse, error)
	cancelFn           func(ctx context.Context, employeeID, id string) (leave.LeaveResponse, error)
	getDetailsFn       func(ctx context.Context, employeeID, id string) (leave.LeaveResponse, error)
}

func (f *fakeService) GetVacationTypes(ctx context.Context, companyID, employeeID string) ([]leave.VacationTypeResponse, error) {
	return f.getVacationTypesFn(ctx, companyID, employeeID)
}
func (f *fakeService) Apply(ctx context.Context, companyID, employeeID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
	return f.applyFn(ctx, companyID, employeeID, req)
}
func (f *fakeService) GetHistory(ctx context.Context, employeeID string, filter leave.HistoryFilter) ([]leave.LeaveResponse, int64, error) {
	return f.getHistoryFn(ctx, employeeID, filter)
}
func (f *fakeService) GetBalance(ctx context.Context, companyID, employeeID string) (leave.BalanceResponse, error) {
	return f.getBalanceFn(ctx, companyID, employeeID)
}
func (f *fakeService) Cancel(ctx context.Context, employeeID, id string) (leave.LeaveResponse, error) {
	return f.cancelFn(ctx, employeeID, id)
}
func (f *fakeService) GetDetails(ctx context.Context, employeeID, id string) (leave.LeaveResponse, error) {
	return f.getDetailsFn(ctx, employeeID, id)
}

func TestHandler_Apply(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	svc := &fakeService{
		applyFn: func(ctx context.Context, cid, eid string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, employeeID, eid)
			return leave.LeaveResponse{ID: uuid.New().String(), Status: leave.StatusPending, TotalDays: 2}, nil
		},
	}
	h := leave.NewHandler(svc)

	body := `{"vacation_type_id":"` + uuid.New().String() + `","start_date":"2026-09-01","end_date":"2026-09-02","reason":"trip"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", companyID)
	c.Set("employee_id", employeeID)
	c.Request = httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Apply(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "\"success\":true")
	assert.Contains(t, w.Body.String(), leave.StatusPending)
}

func TestHandler_Apply_ValidationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()

	h := leave.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(`{"vacation_type_id":"not-a-uuid"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Apply(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "\"success\":false")
}

func TestHandler_Apply_IdempotencyWriteBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()

	resp := leave.LeaveResponse{ID: uuid.New().String(), Status: leave.StatusPending, TotalDays: 1}
	svc := &fakeService{
		applyFn: func(ctx context.Context, cid, eid string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
			return resp, nil
		},
	}

	rdb, mock := redismock.NewClientMock()
	h := leave.NewHandlerWithRedis(svc, rdb)

	cacheKey := "idemp:/leave/requests:user-1:key-1"
	lockKey := cacheKey + ":lock"
	payload, err := json.Marshal(resp)
	assert.NoError(t, err)
	mock.ExpectSet(cacheKey, payload, 24*time.Hour).SetVal("OK")
	mock.ExpectDel(lockKey).SetVal(1)

	body := `{"vacation_type_id":"` + uuid.New().String() + `","start_date":"2026-09-01","end_date":"2026-09-01","reason":"trip"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("employee_id", uuid.New().String())
	c.Set("idempotency_cache_key", cacheKey)
	c.Set("idempotency_lock_key", lockKey)
	c.Request = httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Apply(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Apply_IdempotencyLockReleasedOnFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()

	svc := &fakeService{
		applyFn: func(ctx context.Context, cid, eid string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
			return leave.LeaveResponse{}, leaveerrors.ErrVacationTypeNotAvailable
		},
	}

	rdb, mock := redismock.NewClientMock()
	h := leave.NewHandlerWithRedis(svc, rdb)

	cacheKey := "idemp:/leave/requests:user-1:key-1"
	lockKey := cacheKey + ":lock"
	// The lock comes off so a retry is not stuck behind a 409, and nothing
	// is cached for replay.
	mock.ExpectDel(lockKey).SetVal(1)

	body := `{"vacation_type_id":"` + uuid.New().String() + `","start_date":"2026-09-01","end_date":"2026-09-01","reason":"trip"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("employee_id", uuid.New().String())
	c.Set("idempotency_cache_key", cacheKey)
	c.Set("idempotency_lock_key", lockKey)
	c.Request = httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Apply(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_GetHistory_PaginationMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	employeeID := uuid.New().String()

	svc := &fakeService{
		getHistoryFn: func(ctx context.Context, eid string, filter leave.HistoryFilter) ([]leave.LeaveResponse, int64, error) {
			assert.Equal(t, employeeID, eid)
			assert.Equal(t, "approved", filter.Status)
			assert.Equal(t, 2, filter.Page)
			assert.Equal(t, 5, filter.PerPage)
			return []leave.LeaveResponse{{ID: uuid.New().String()}}, 11, nil
		},
	}
	h := leave.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("employee_id", employeeID)
	c.Request = httptest.NewRequest(http.MethodGet, "/leave/requests?status=approved&page=2&per_page=5", nil)

	h.GetHistory(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"meta\"")
	assert.Contains(t, w.Body.String(), "\"total\":11")
}

func TestHandler_Cancel_InvalidState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		cancelFn: func(ctx context.Context, eid, id string) (leave.LeaveResponse, error) {
			return leave.LeaveResponse{}, leaveerrors.ErrNotCancellable
		},
	}
	h := leave.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("employee_id", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodPost, "/leave/requests/x/cancel", nil)

	h.Cancel(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeInvalidState)
}
