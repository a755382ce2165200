package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

const maxExportRange = 90 * 24 * time.Hour

// ExportAuditLogs handles GET /v1/audit/export
func (s *Server) ExportAuditLogs(c *gin.Context) {
	startStr := strings.TrimSpace(c.Query("start_date"))
	endStr := strings.TrimSpace(c.Query("end_date"))
	formatStr := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	groupStr := strings.TrimSpace(c.Query("group_id"))
	kindsStr := strings.TrimSpace(c.Query("kinds"))

	if startStr == "" || endStr == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	startDate, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	endDate, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// End date is inclusive in the query string, exclusive in the store.
	endDate = endDate.Add(24 * time.Hour)
	if endDate.Before(startDate) || endDate.Sub(startDate) > maxExportRange {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var format auditdomain.ExportFormat
	switch formatStr {
	case "csv":
		format = auditdomain.ExportFormatCSV
	case "json":
		format = auditdomain.ExportFormatJSON
	default:
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var groupID *int64
	if groupStr != "" {
		id, err := strconv.ParseInt(groupStr, 10, 64)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		groupID = &id
	}

	var kinds []string
	if kindsStr != "" {
		kinds = strings.Split(kindsStr, ",")
		for i := range kinds {
			kinds[i] = strings.TrimSpace(kinds[i])
		}
	}

	result, err := s.audit.Export(c.Request.Context(), auditdomain.ExportRequest{
		GroupID:   groupID,
		StartDate: startDate,
		EndDate:   endDate,
		Format:    format,
		Kinds:     kinds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("X-Audit-Export-Checksum", result.Checksum)
	c.Header("X-Audit-Export-Count", strconv.Itoa(result.Count))

	var contentType, filename string
	switch result.Format {
	case auditdomain.ExportFormatCSV:
		contentType = "text/csv"
		filename = "audit_export_" + startStr + "_" + endStr + ".csv"
	case auditdomain.ExportFormatJSON:
		contentType = "application/json"
		filename = "audit_export_" + startStr + "_" + endStr + ".json"
	}
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, result.Data)
}
