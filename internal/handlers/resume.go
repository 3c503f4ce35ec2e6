package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zyncjobs/backend/internal/ai"
	"github.com/zyncjobs/backend/internal/logging"
)

const resumeSystemPrompt = "You are a professional resume writer. Improve the wording of the resume content you are given. Keep it factual, concise, and ATS-friendly. Return plain text only."

type ResumeHandler struct {
	AI ai.Generator
}

type enhanceResumeRequest struct {
	ResumeData map[string]interface{} `json:"resumeData"`
}

// EnhanceResume rewrites resume content through the provider; on failure the
// caller gets deterministic advice instead of an error.
func (h *ResumeHandler) EnhanceResume(c echo.Context) error {
	var req enhanceResumeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(req.ResumeData) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "resumeData is required")
	}

	data, err := json.Marshal(req.ResumeData)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	enhancement := h.generate(c, resumeSystemPrompt,
		"Enhance this resume content:\n"+string(data),
		"Use strong action verbs, quantify achievements where possible, and lead each section with your most relevant experience. Keep bullet points to one line.")

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"enhancement": enhancement,
	})
}

type jobDescriptionRequest struct {
	JobTitle     string `json:"jobTitle"`
	Company      string `json:"company"`
	Requirements string `json:"requirements"`
}

func (h *ResumeHandler) GenerateJobDescription(c echo.Context) error {
	var req jobDescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.JobTitle == "" || req.Company == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "jobTitle and company are required")
	}

	prompt := fmt.Sprintf("Write a job description for a %s position at %s.", req.JobTitle, req.Company)
	if req.Requirements != "" {
		prompt += " Requirements: " + req.Requirements
	}

	description := h.generate(c, "You write clear, structured job descriptions.", prompt,
		fmt.Sprintf("%s at %s.\n\nResponsibilities: deliver on the role's core duties and collaborate across teams.\nRequirements: %s",
			req.JobTitle, req.Company, orDefault(req.Requirements, "relevant experience and strong communication skills")))

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"jobDescription": description,
	})
}

type careerAdviceRequest struct {
	Query string `json:"query"`
}

func (h *ResumeHandler) CareerAdvice(c echo.Context) error {
	var req careerAdviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	advice := h.generate(c, "You are a pragmatic career coach for job seekers.", req.Query,
		"Focus on roles matching your strongest skills, tailor every application to the posting, and build a portfolio of concrete results you can talk through in interviews.")

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"advice":  advice,
	})
}

func (h *ResumeHandler) generate(c echo.Context, system, prompt, fallback string) string {
	if h.AI == nil {
		return fallback
	}
	text, err := h.AI.Generate(c.Request().Context(), system, prompt)
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("ai provider failed, using fallback", "error", err)
		return fallback
	}
	return text
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
