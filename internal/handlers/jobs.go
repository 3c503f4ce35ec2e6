package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/es"
	"github.com/zyncjobs/backend/internal/logging"
	"github.com/zyncjobs/backend/internal/models"
	"github.com/zyncjobs/backend/internal/mykafka"
	"github.com/zyncjobs/backend/internal/util"
)

var jobTypes = map[string]bool{
	"Full-time":  true,
	"Part-time":  true,
	"Contract":   true,
	"Freelance":  true,
	"Internship": true,
}

var locationTypes = map[string]bool{
	"Remote":  true,
	"On-site": true,
	"Hybrid":  true,
}

type JobHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
	ES       *elasticsearch.Client
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *JobHandler) publish(c echo.Context, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "job_events", fmt.Sprint(event["job_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", "job_events", "error", err)
	}
}

func (h *JobHandler) GetJobs(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.WithContext(c.Request().Context()).Model(&models.Job{}).Where("status = ?", "active")
	if title := c.QueryParam("title"); title != "" {
		q = q.Where("title LIKE ?", "%"+title+"%")
	}
	if location := c.QueryParam("location"); location != "" {
		q = q.Where("location LIKE ?", "%"+location+"%")
	}
	if jobType := c.QueryParam("job_type"); jobType != "" {
		q = q.Where("job_type = ?", jobType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.Job
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *JobHandler) GetJob(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	var job models.Job
	if err := h.DB.WithContext(c.Request().Context()).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, job)
}

type jobRequest struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	JobType      string `json:"job_type"`
	LocationType string `json:"location_type"`
	SalaryMin    int    `json:"salary_min"`
	SalaryMax    int    `json:"salary_max"`
	Description  string `json:"description"`
	Skills       string `json:"skills"`
	Experience   string `json:"experience"`
}

func (h *JobHandler) CreateJob(c echo.Context) error {
	var req jobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if req.Title == "" || req.Company == "" || req.Location == "" || req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title, company, location and description are required")
	}
	if !jobTypes[req.JobType] {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job type")
	}
	if req.LocationType == "" {
		req.LocationType = "On-site"
	}
	if !locationTypes[req.LocationType] {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location type")
	}

	employerID, _ := c.Get("userID").(uint)
	employerEmail, _ := c.Get("email").(string)

	job := models.Job{
		Title:         req.Title,
		Company:       req.Company,
		Location:      req.Location,
		JobType:       req.JobType,
		LocationType:  req.LocationType,
		SalaryMin:     req.SalaryMin,
		SalaryMax:     req.SalaryMax,
		Description:   req.Description,
		Skills:        req.Skills,
		Experience:    req.Experience,
		Status:        "active",
		EmployerID:    employerID,
		EmployerEmail: employerEmail,
	}

	if err := h.DB.WithContext(c.Request().Context()).Create(&job).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if h.ES != nil {
		if err := es.IndexJob(c.Request().Context(), h.ES, &job); err != nil {
			logging.FromContext(c.Request().Context()).Warn("job index failed", "job_id", job.ID, "error", err)
		}
	}

	h.publish(c, map[string]interface{}{
		"type":   "job_created",
		"job_id": job.ID,
		"title":  job.Title,
	})

	return c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) DeleteJob(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	employerID, _ := c.Get("userID").(uint)

	var job models.Job
	if err := h.DB.WithContext(c.Request().Context()).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if job.EmployerID != employerID {
		return echo.NewHTTPError(http.StatusForbidden, "not your posting")
	}

	if err := h.DB.WithContext(c.Request().Context()).Delete(&models.Job{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if h.ES != nil {
		if err := es.DeleteJob(c.Request().Context(), h.ES, job.ID); err != nil {
			logging.FromContext(c.Request().Context()).Warn("job unindex failed", "job_id", job.ID, "error", err)
		}
	}

	h.publish(c, map[string]interface{}{
		"type":   "job_deleted",
		"job_id": job.ID,
	})

	return c.NoContent(http.StatusNoContent)
}

// EmployerJobs lists the caller's own postings.
func (h *JobHandler) EmployerJobs(c echo.Context) error {
	employerID, _ := c.Get("userID").(uint)

	var items []models.Job
	if err := h.DB.WithContext(c.Request().Context()).
		Where("employer_id = ?", employerID).
		Order("created_at DESC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, items)
}
