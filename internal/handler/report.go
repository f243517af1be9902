package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"welfare/internal/report"
	"welfare/internal/service"
)

// ReportHandler handles report exports.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Contributions handles GET /v1/reports/contributions?from=&to=&format=csv|xlsx|pdf
func (h *ReportHandler) Contributions(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}

	from, to, ok := parseDateRange(c, true)
	if !ok {
		return
	}

	r, err := h.reportService.ContributionReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := report.Render(r, format)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+r.Filename(format)+`"`)
	c.Data(http.StatusOK, format.ContentType(), data)
}
