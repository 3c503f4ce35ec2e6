package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/logging"
	"github.com/zyncjobs/backend/internal/models"
	"github.com/zyncjobs/backend/internal/mykafka"
)

var applicationStatuses = map[string]bool{
	"pending":  true,
	"reviewed": true,
	"rejected": true,
	"accepted": true,
}

type ApplicationHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
}

func (h *ApplicationHandler) publish(c echo.Context, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "application_events", fmt.Sprint(event["application_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", "application_events", "error", err)
	}
}

type applyRequest struct {
	JobID       uint   `json:"job_id"`
	FullName    string `json:"full_name"`
	CoverLetter string `json:"cover_letter"`
	ResumeURL   string `json:"resume_url"`
}

// Apply files one application per candidate per job.
func (h *ApplicationHandler) Apply(c echo.Context) error {
	var req applyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.JobID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "job_id is required")
	}

	candidateID, _ := c.Get("userID").(uint)
	email, _ := c.Get("email").(string)
	ctx := c.Request().Context()

	var job models.Job
	if err := h.DB.WithContext(ctx).First(&job, req.JobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var existing models.Application
	err := h.DB.WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", req.JobID, candidateID).
		First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "already applied to this job")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	app := models.Application{
		JobID:       req.JobID,
		CandidateID: candidateID,
		FullName:    req.FullName,
		Email:       email,
		CoverLetter: req.CoverLetter,
		ResumeURL:   req.ResumeURL,
		Status:      "pending",
	}
	if err := h.DB.WithContext(ctx).Create(&app).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]interface{}{
		"type":           "application_submitted",
		"application_id": app.ID,
		"job_id":         app.JobID,
	})

	return c.JSON(http.StatusCreated, app)
}

// MyApplications lists the caller's applications, newest first.
func (h *ApplicationHandler) MyApplications(c echo.Context) error {
	candidateID, _ := c.Get("userID").(uint)

	var items []models.Application
	if err := h.DB.WithContext(c.Request().Context()).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, items)
}

// JobApplications lists applicants for one of the caller's postings.
func (h *ApplicationHandler) JobApplications(c echo.Context) error {
	jobID, err := strconv.Atoi(c.Param("jobId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	employerID, _ := c.Get("userID").(uint)
	ctx := c.Request().Context()

	var job models.Job
	if err := h.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if job.EmployerID != employerID {
		return echo.NewHTTPError(http.StatusForbidden, "not your posting")
	}

	var items []models.Application
	if err := h.DB.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, items)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *ApplicationHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid application id")
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if !applicationStatuses[req.Status] {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	employerID, _ := c.Get("userID").(uint)
	ctx := c.Request().Context()

	var app models.Application
	if err := h.DB.WithContext(ctx).First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "application not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var job models.Job
	if err := h.DB.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if job.EmployerID != employerID {
		return echo.NewHTTPError(http.StatusForbidden, "not your posting")
	}

	if err := h.DB.WithContext(ctx).Model(&app).Update("status", req.Status).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]interface{}{
		"type":           "application_status_changed",
		"application_id": app.ID,
		"job_id":         app.JobID,
		"status":         req.Status,
	})

	return c.JSON(http.StatusOK, app)
}
