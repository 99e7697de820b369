package leave

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// KindVacation is the only request kind today. The kind + typed reference
// pair replaces the polymorphic requestable association of older schemas.
const KindVacation = "vacation"

type VacationType struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Name               string    `gorm:"type:varchar(255);not null"`
	Description        string    `gorm:"type:text"`
	Balance            int       `gorm:"type:int;not null;default:0"` // days per year
	UnlockAfterMonths  int       `gorm:"type:int;not null;default:0"`
	RequiredDaysBefore int       `gorm:"type:int;not null;default:0"`
	RequiresApproval   bool      `gorm:"not null;default:true"`
	Status             bool      `gorm:"not null;default:true"` // active flag

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// AvailableFor reports whether an employee with the given tenure can use
// this type: it must be active and past its unlock window.
func (v *VacationType) AvailableFor(tenureMonths int) bool {
	return v.Status && tenureMonths >= v.UnlockAfterMonths
}

type LeaveRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_company_status"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_employee_dates"`

	RequestKind    string    `gorm:"type:varchar(30);not null;default:'vacation'"`
	VacationTypeID uuid.UUID `gorm:"type:uuid;not null;index"`

	Status      string    `gorm:"type:varchar(20);not null;default:'pending';index:idx_leave_requests_company_status"`
	StartDate   time.Time `gorm:"type:date;not null;index:idx_leave_requests_employee_dates"`
	EndDate     time.Time `gorm:"type:date;not null;index:idx_leave_requests_employee_dates"`
	TotalDays   int       `gorm:"type:int;not null;default:1"`
	Reason      string    `gorm:"type:text"`
	RequestDate time.Time `gorm:"not null"`

	ApprovedAt   *time.Time
	ApproverName *string `gorm:"type:varchar(255)"`
	AdminNotes   *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	VacationType *VacationType `gorm:"foreignKey:VacationTypeID"`
}

// CanBeCancelled: pending always, approved only while the leave has not
// started yet.
func (l *LeaveRequest) CanBeCancelled(now time.Time) bool {
	switch l.Status {
	case StatusPending:
		return true
	case StatusApproved:
		today := now.Truncate(24 * time.Hour)
		return l.StartDate.After(today)
	default:
		return false
	}
}
