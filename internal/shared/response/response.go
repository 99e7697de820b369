package response

import (
	"github.com/gin-gonic/gin"
)

type PaginationMeta struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
}

func NewPaginationMeta(total int64, page, perPage int) PaginationMeta {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}

	return PaginationMeta{
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PerPage:     perPage,
	}
}

// Envelope is the uniform response body:
// {success, message?, data?, meta?, errors?}.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    any             `json:"data,omitempty"`
	Meta    *PaginationMeta `json:"meta,omitempty"`
	Errors  any             `json:"errors,omitempty"`
}

func Success(c *gin.Context, status int, data any, meta *PaginationMeta) {
	c.JSON(status, Envelope{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func SuccessWithMessage(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, errorCode string, message string, details any) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Errors: map[string]any{
			"code":    errorCode,
			"details": details,
		},
	})
}
