package middleware

import (
	"net/http"
	"strings"

	"hr-collab/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CompanyContext resolves the company a chat request operates in.
// Precedence: ?company_id → uuid path segment → X-Company-Id header →
// the caller's own company from the token. Missing on all four → 400.
func CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.Query("company_id")

		if companyID == "" {
			companyID = uuidPathSegment(c.Request.URL.Path)
		}

		if companyID == "" {
			companyID = c.GetHeader("X-Company-Id")
		}

		if companyID == "" {
			companyID = c.GetString("company_id")
		}

		if companyID == "" {
			response.Error(c, http.StatusBadRequest, "COMPANY_REQUIRED", "Company ID required", nil)
			c.Abort()
			return
		}

		c.Set("chat_company_id", companyID)
		c.Next()
	}
}

// uuidPathSegment picks the company id out of legacy paths shaped like
// /company/<uuid>/chat/... . Only the segment right after "company" counts,
// otherwise conversation ids in the path would shadow the real company.
func uuidPathSegment(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if seg != "company" && seg != "companies" {
			continue
		}
		if i+1 < len(segs) {
			if _, err := uuid.Parse(segs[i+1]); err == nil {
				return segs[i+1]
			}
		}
	}
	return ""
}
