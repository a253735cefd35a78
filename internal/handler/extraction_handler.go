package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"motscan/internal/domain"
	"motscan/internal/export"
	"motscan/internal/port"
	"motscan/internal/service"
)

// ExtractionHandler handles extraction job endpoints.
type ExtractionHandler struct {
	extractionService service.ExtractionService
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(extractionService service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractionService: extractionService}
}

type createJobInput struct {
	ScreenshotID uuid.UUID `json:"screenshot_id" binding:"required"`
}

type resolveReviewInput struct {
	Approve     bool              `json:"approve"`
	Corrections map[string]string `json:"corrections"`
	Notes       string            `json:"notes"`
}

// Create handles POST /api/v1/extractions
func (h *ExtractionHandler) Create(c *gin.Context) {
	userID, ok := extractUser(c)
	if !ok {
		return
	}

	var input createJobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if c.Query("sync") == "true" {
		job, err := h.extractionService.ExtractSync(c.Request.Context(), input.ScreenshotID, userID)
		if err != nil {
			HandleError(c, err)
			return
		}
		RespondOK(c, job)
		return
	}

	job, err := h.extractionService.CreateJob(c.Request.Context(), input.ScreenshotID, userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, job)
}

// Get handles GET /api/v1/extractions/:id
func (h *ExtractionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction id")
		return
	}

	job, err := h.extractionService.GetJob(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, job)
}

// List handles GET /api/v1/extractions
func (h *ExtractionHandler) List(c *gin.Context) {
	filter, ok := parseJobFilter(c)
	if !ok {
		return
	}

	jobs, total, err := h.extractionService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, jobs, PagMeta{Total: total, Offset: filter.Offset, Limit: filter.Limit})
}

// Retry handles POST /api/v1/extractions/:id/retry
func (h *ExtractionHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction id")
		return
	}

	job, err := h.extractionService.Retry(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, job)
}

// ReviewQueue handles GET /api/v1/extractions/review-queue
func (h *ExtractionHandler) ReviewQueue(c *gin.Context) {
	limit, offset := parsePagination(c)
	filter := port.ExtractionJobFilter{ReviewOnly: true, Limit: limit, Offset: offset}

	jobs, total, err := h.extractionService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, jobs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// ResolveReview handles POST /api/v1/extractions/:id/review
func (h *ExtractionHandler) ResolveReview(c *gin.Context) {
	userID, ok := extractUser(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction id")
		return
	}

	var input resolveReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	for field := range input.Corrections {
		if !isExtractionField(field) {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("unknown field %q in corrections", field))
			return
		}
	}

	job, err := h.extractionService.ResolveReview(c.Request.Context(), id, userID, domain.ReviewResolution{
		Approve:     input.Approve,
		Corrections: input.Corrections,
		Notes:       input.Notes,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, job)
}

// Export handles GET /api/v1/extractions/export?format=csv|xlsx
// and streams the filtered jobs as a download.
func (h *ExtractionHandler) Export(c *gin.Context) {
	filter, ok := parseJobFilter(c)
	if !ok {
		return
	}
	// Exports default to everything matching the filter, bounded.
	if c.Query("limit") == "" || filter.Limit > 10000 {
		filter.Limit = 10000
	}

	jobs, _, err := h.extractionService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		filename := export.BuildFilename("extractions", "csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Writer.WriteHeader(http.StatusOK)
		_, _ = c.Writer.Write(export.BOM)

		w := export.NewWriter(c.Writer)
		if err := w.WriteHeader(); err != nil {
			return
		}
		if err := w.WriteJobs(jobs); err != nil {
			return
		}
		w.Flush()
	case "xlsx":
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, jobs); err != nil {
			HandleError(c, err)
			return
		}
		filename := export.BuildFilename("extractions", "xlsx")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be csv or xlsx")
	}
}

// CheckRegistration handles GET /api/v1/registrations/:registration/check
func (h *ExtractionHandler) CheckRegistration(c *gin.Context) {
	registration := c.Param("registration")
	if registration == "" {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "registration is required")
		return
	}

	check, err := h.extractionService.CheckRegistration(c.Request.Context(), registration)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, check)
}

// ModelsInfo handles GET /api/v1/models
func (h *ExtractionHandler) ModelsInfo(c *gin.Context) {
	RespondOK(c, h.extractionService.ModelsInfo())
}

func parseJobFilter(c *gin.Context) (port.ExtractionJobFilter, bool) {
	limit, offset := parsePagination(c)
	filter := port.ExtractionJobFilter{Limit: limit, Offset: offset}

	if s := c.Query("status"); s != "" {
		status := domain.JobStatus(s)
		switch status {
		case domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
			filter.Status = &status
		default:
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid status filter")
			return filter, false
		}
	}
	if s := c.Query("review_status"); s != "" {
		rs := domain.ReviewStatus(s)
		switch rs {
		case domain.ReviewNotRequired, domain.ReviewPending, domain.ReviewApproved, domain.ReviewCorrected:
			filter.ReviewStatus = &rs
		default:
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid review_status filter")
			return filter, false
		}
	}
	return filter, true
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func isExtractionField(field string) bool {
	for _, f := range domain.ExtractionFields {
		if f == field {
			return true
		}
	}
	return false
}
