package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	FullName         string     `gorm:"type:varchar(255);not null"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone            string     `gorm:"type:varchar(50)"`
	HireDate         time.Time  `gorm:"type:date;not null"`
	EmploymentStatus string     `gorm:"type:varchar(30);not null;default:'ACTIVE'"`

	// At most one stored animation per employee. Path is relative to the
	// blob store root; the old file is removed before a replacement lands.
	CustomAnimationPath *string    `gorm:"type:text"`
	AnimationUploadedAt *time.Time `gorm:""`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TenureMonths is the number of whole months since hire, used for
// vacation-type unlock rules.
func (e *Employee) TenureMonths(now time.Time) int {
	if now.Before(e.HireDate) {
		return 0
	}
	months := (now.Year()-e.HireDate.Year())*12 + int(now.Month()) - int(e.HireDate.Month())
	if now.Day() < e.HireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
