package events

import "time"

const LeaveRequestTopic = "hr.leave.request.v1"

type LeaveRequestedEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id"`
	LeaveRequestID string    `json:"leave_request_id"`
	EmployeeID     string    `json:"employee_id"`
	CompanyID      string    `json:"company_id"`
	VacationType   string    `json:"vacation_type"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	TotalDays      int       `json:"total_days"`
	OccurredAt     time.Time `json:"occurred_at"`
}
