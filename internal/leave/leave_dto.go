package leave

type ApplyLeaveRequest struct {
	VacationTypeID string `json:"vacation_type_id" binding:"required,uuid"`
	StartDate      string `json:"start_date" binding:"required"`
	EndDate        string `json:"end_date" binding:"required"`
	Reason         string `json:"reason" binding:"required,max=500"`
}

type VacationTypeResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	Balance            int    `json:"balance"`
	UnlockAfterMonths  int    `json:"unlock_after_months"`
	RequiredDaysBefore int    `json:"required_days_before"`
	RequiresApproval   bool   `json:"requires_approval"`
	IsAvailable        bool   `json:"is_available"`
}

type VacationTypeRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type LeaveResponse struct {
	ID           string           `json:"id"`
	VacationType *VacationTypeRef `json:"vacation_type"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	TotalDays    int              `json:"total_days"`
	Status       string           `json:"status"`
	Reason       string           `json:"reason"`
	AdminNotes   *string          `json:"admin_notes"`
	RequestDate  string           `json:"request_date"`
	ApprovedAt   *string          `json:"approved_at"`
	ApproverName *string          `json:"approver_name"`
	CanCancel    bool             `json:"can_cancel"`
}

type HistoryFilter struct {
	Status  string
	Page    int
	PerPage int
}

type TypeBalance struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TotalBalance  int    `json:"total_balance"`
	UsedDays      int    `json:"used_days"`
	RemainingDays int    `json:"remaining_days"`
	IsAvailable   bool   `json:"is_available"`
}

type BalanceResponse struct {
	Balances       []TypeBalance `json:"balances"`
	TotalRemaining int           `json:"total_remaining"`
	Year           int           `json:"year"`
}
