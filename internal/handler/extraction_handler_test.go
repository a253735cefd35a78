package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"motscan/internal/domain"
	"motscan/internal/handler"
	"motscan/internal/middleware"
	"motscan/internal/port"
	"motscan/internal/service"
	"motscan/internal/validation"
	"motscan/mocks"
)

// extractionRouter wires the handler behind a stub auth middleware that
// injects a fixed user.
func extractionRouter(svc service.ExtractionService, userID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyRole, string(domain.RoleReviewer))
		c.Next()
	})
	h := handler.NewExtractionHandler(svc)
	r.POST("/api/v1/extractions", h.Create)
	r.GET("/api/v1/extractions", h.List)
	r.GET("/api/v1/extractions/export", h.Export)
	r.GET("/api/v1/extractions/review-queue", h.ReviewQueue)
	r.GET("/api/v1/extractions/:id", h.Get)
	r.POST("/api/v1/extractions/:id/retry", h.Retry)
	r.POST("/api/v1/extractions/:id/review", h.ResolveReview)
	r.GET("/api/v1/registrations/:registration/check", h.CheckRegistration)
	r.GET("/api/v1/models", h.ModelsInfo)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateExtraction(t *testing.T) {
	t.Run("queues a job", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		userID := uuid.New()
		screenshotID := uuid.New()
		job := &domain.ExtractionJob{ID: uuid.New(), ScreenshotID: screenshotID, Status: domain.JobStatusQueued}
		svc.On("CreateJob", mock.Anything, screenshotID, userID).Return(job, nil)

		w := postJSON(t, extractionRouter(svc, userID), "/api/v1/extractions", gin.H{
			"screenshot_id": screenshotID,
		})

		assert.Equal(t, http.StatusAccepted, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("sync mode waits for the result", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		userID := uuid.New()
		screenshotID := uuid.New()
		job := &domain.ExtractionJob{ID: uuid.New(), ScreenshotID: screenshotID, Status: domain.JobStatusCompleted}
		svc.On("ExtractSync", mock.Anything, screenshotID, userID).Return(job, nil)

		w := postJSON(t, extractionRouter(svc, userID), "/api/v1/extractions?sync=true", gin.H{
			"screenshot_id": screenshotID,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown screenshot is 404", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		svc.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

		w := postJSON(t, extractionRouter(svc, uuid.New()), "/api/v1/extractions", gin.H{
			"screenshot_id": uuid.New(),
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetExtraction(t *testing.T) {
	t.Run("invalid id is 400", func(t *testing.T) {
		w := get(extractionRouter(new(mocks.MockExtractionService), uuid.New()), "/api/v1/extractions/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing job is 404", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		id := uuid.New()
		svc.On("GetJob", mock.Anything, id).Return(nil, domain.ErrJobNotFound)

		w := get(extractionRouter(svc, uuid.New()), "/api/v1/extractions/"+id.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp handler.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "JOB_NOT_FOUND", resp.Error.Code)
	})
}

func TestListExtractions(t *testing.T) {
	t.Run("returns pagination meta", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		jobs := []*domain.ExtractionJob{{ID: uuid.New(), Status: domain.JobStatusCompleted}}
		svc.On("ListJobs", mock.Anything, mock.MatchedBy(func(f port.ExtractionJobFilter) bool {
			return f.Limit == 10 && f.Offset == 20 && f.Status != nil && *f.Status == domain.JobStatusCompleted
		})).Return(jobs, 31, nil)

		w := get(extractionRouter(svc, uuid.New()), "/api/v1/extractions?limit=10&offset=20&status=completed")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp handler.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 31, resp.Meta.Total)
		assert.Equal(t, 20, resp.Meta.Offset)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		w := get(extractionRouter(new(mocks.MockExtractionService), uuid.New()), "/api/v1/extractions?status=bogus")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReviewQueueEndpoint(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("ListJobs", mock.Anything, mock.MatchedBy(func(f port.ExtractionJobFilter) bool {
		return f.ReviewOnly
	})).Return([]*domain.ExtractionJob{}, 0, nil)

	w := get(extractionRouter(svc, uuid.New()), "/api/v1/extractions/review-queue")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestResolveReviewEndpoint(t *testing.T) {
	t.Run("passes resolution through", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		userID := uuid.New()
		id := uuid.New()
		job := &domain.ExtractionJob{ID: id, ReviewStatus: domain.ReviewCorrected}
		svc.On("ResolveReview", mock.Anything, id, userID, domain.ReviewResolution{
			Corrections: map[string]string{domain.FieldRegistration: "AB12 CDE"},
		}).Return(job, nil)

		w := postJSON(t, extractionRouter(svc, userID), "/api/v1/extractions/"+id.String()+"/review", gin.H{
			"corrections": gin.H{"registration": "AB12 CDE"},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects corrections for unknown fields", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)

		w := postJSON(t, extractionRouter(svc, uuid.New()), "/api/v1/extractions/"+uuid.New().String()+"/review", gin.H{
			"corrections": gin.H{"vin_number": "XYZ"},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ResolveReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already resolved is 409", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		svc.On("ResolveReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrJobNotReviewable)

		w := postJSON(t, extractionRouter(svc, uuid.New()), "/api/v1/extractions/"+uuid.New().String()+"/review", gin.H{
			"approve": true,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestExportEndpoint(t *testing.T) {
	t.Run("streams csv with BOM", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		svc.On("ListJobs", mock.Anything, mock.Anything).Return([]*domain.ExtractionJob{}, 0, nil)

		w := get(extractionRouter(svc, uuid.New()), "/api/v1/extractions/export?format=csv")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.True(t, strings.HasPrefix(w.Body.String(), "\xEF\xBB\xBF"))
		assert.Contains(t, w.Body.String(), "Job ID")
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		svc := new(mocks.MockExtractionService)
		svc.On("ListJobs", mock.Anything, mock.Anything).Return([]*domain.ExtractionJob{}, 0, nil)

		w := get(extractionRouter(svc, uuid.New()), "/api/v1/extractions/export?format=pdf")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCheckRegistrationEndpoint(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("CheckRegistration", mock.Anything, "AB12CDE").Return(&service.RegistrationCheck{
		Validation:      validation.RegistrationResult{IsValid: true, Normalized: "AB12CDE"},
		RegistryChecked: true,
		FoundInRegistry: true,
	}, nil)

	w := get(extractionRouter(svc, uuid.New()), "/api/v1/registrations/AB12CDE/check")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestModelsInfoEndpoint(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("ModelsInfo").Return(service.EnsembleInfo{
		Models:               []service.ModelInfo{{Name: "claude", Weight: 0.35, TimeoutSecs: 60}},
		MinRequiredSuccesses: 2,
	})

	w := get(extractionRouter(svc, uuid.New()), "/api/v1/models")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "claude")
}
