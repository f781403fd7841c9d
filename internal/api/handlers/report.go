package handlers

import (
	"fmt"
	"time"

	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Dashboard returns the aggregate rollups. Admin-only; an optional
// `guardia` query param narrows every count to one assignee.
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := h.reportService.DashboardStats(c.Query("guardia"))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to compute dashboard stats"})
		return
	}

	c.JSON(200, stats)
}

// ExportCSV streams the filtered guardia set as a CSV attachment. Same
// filter semantics as the list; non-admins only ever export their own
// entries.
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	filters := services.GuardiaFilters{
		Guardia:   c.Query("guardia"),
		Estado:    c.Query("estado"),
		Resueltos: c.Query("resueltos"),
		Query:     c.Query("q"),
	}

	filename := fmt.Sprintf("guardias_%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.reportService.ExportCSV(filters, currentUser(c), c.Writer); err != nil {
		// headers are already out; all we can do is cut the stream short
		c.Status(500)
		return
	}
}
