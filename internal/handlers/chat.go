package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zyncjobs/backend/internal/ai"
	"github.com/zyncjobs/backend/internal/logging"
)

const chatSystemPrompt = "You are ZyncJobs AI assistant. Help with job searching, career advice, resume writing, interview preparation, and job portal features."

type ChatHandler struct {
	AI ai.Generator
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat answers through the text-generation provider and falls back to the
// canned responses when the provider is unavailable. Provider errors never
// surface to the client.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	response := ""
	if h.AI != nil {
		text, err := h.AI.Generate(c.Request().Context(), chatSystemPrompt, req.Message)
		if err != nil {
			logging.FromContext(c.Request().Context()).Warn("chat provider failed, using fallback", "error", err)
		} else {
			response = text
		}
	}
	if response == "" {
		response = fallbackResponse(req.Message)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"response": response,
		"sources":  []string{},
	})
}

func fallbackResponse(message string) string {
	m := strings.ToLower(message)

	switch {
	case containsAny(m, "hello", "hi", "hey"):
		return "Hello! I'm ZyncJobs AI Assistant. I can help you with job searching, resume building, interview preparation, and career advice. What would you like to know?"
	case containsAny(m, "resume", "cv"):
		return "I can help you create a great resume! Use our AI Resume Builder or let me give you tips on formatting, keywords, and content."
	case containsAny(m, "interview"):
		return "Interview preparation is crucial! I can help with common questions, STAR method responses, technical prep, and salary negotiation tips."
	case containsAny(m, "salary", "pay"):
		return "Salary insights and negotiation tips: research market rates for your role, highlight your unique value, and practice negotiation scenarios."
	case containsAny(m, "skill", "learn"):
		return "Skills development is key to career growth! In-demand areas include cloud computing, data science, full-stack development, and cybersecurity."
	case containsAny(m, "company", "employer"):
		return "Finding the right company matters! I can help you research company culture, hiring processes, and reviews."
	case containsAny(m, "job", "work", "career"):
		return "ZyncJobs has thousands of opportunities! I can help you search for jobs, optimize your applications, and prepare for interviews. What specific help do you need?"
	default:
		return "I'm your ZyncJobs AI Assistant! I can help with job searching, resume writing, interview preparation, salary negotiation, and company research. What would you like to explore today?"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
