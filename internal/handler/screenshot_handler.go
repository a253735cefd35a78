package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"motscan/internal/service"
)

// ScreenshotHandler handles screenshot upload and management endpoints.
type ScreenshotHandler struct {
	fileService service.FileService
}

// NewScreenshotHandler creates a new ScreenshotHandler.
func NewScreenshotHandler(fileService service.FileService) *ScreenshotHandler {
	return &ScreenshotHandler{fileService: fileService}
}

// Upload handles POST /api/v1/screenshots
func (h *ScreenshotHandler) Upload(c *gin.Context) {
	userID, ok := extractUser(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	screenshot, err := h.fileService.Upload(c.Request.Context(), service.ScreenshotUploadInput{
		UploadedBy: userID,
		File:       file,
		Header:     header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, screenshot)
}

// Get handles GET /api/v1/screenshots/:id
func (h *ScreenshotHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid screenshot id")
		return
	}

	screenshot, err := h.fileService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, screenshot)
}

// DownloadURL handles GET /api/v1/screenshots/:id/download
func (h *ScreenshotHandler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid screenshot id")
		return
	}

	url, err := h.fileService.GetDownloadURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"url": url})
}

// Delete handles DELETE /api/v1/screenshots/:id
func (h *ScreenshotHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid screenshot id")
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "screenshot deleted"})
}
