package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/models"
	"github.com/zyncjobs/backend/internal/util"
)

type CompanyHandler struct {
	DB *gorm.DB
}

func (h *CompanyHandler) GetCompanies(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(c.Request().Context()).Model(&models.Company{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.Company
	if err := h.DB.WithContext(c.Request().Context()).
		Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *CompanyHandler) GetCompany(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid company id")
	}

	var company models.Company
	if err := h.DB.WithContext(c.Request().Context()).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "company not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, company)
}

type companyRequest struct {
	Name        string `json:"name"`
	Website     string `json:"website"`
	Industry    string `json:"industry"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func (h *CompanyHandler) CreateCompany(c echo.Context) error {
	var req companyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	company := models.Company{
		Name:        req.Name,
		Website:     req.Website,
		Industry:    req.Industry,
		Location:    req.Location,
		Description: req.Description,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&company).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, "company already exists")
	}

	return c.JSON(http.StatusCreated, company)
}

// SearchCompanies is a plain name-substring lookup; job search proper goes
// through Elasticsearch.
func (h *CompanyHandler) SearchCompanies(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	var items []models.Company
	if err := h.DB.WithContext(c.Request().Context()).
		Where("name LIKE ?", "%"+q+"%").
		Order("name ASC").Limit(20).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, items)
}
