package template

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.GET("/templates", h.ListTemplates)
	read.GET("/templates/:id", h.GetTemplate)
	read.GET("/templates/:id/versions", h.ListVersions)
	read.POST("/templates/:id/preview", h.PreviewTemplate)

	write := api.Group("", auth.RequireRole("admin"))
	write.POST("/templates", h.CreateTemplate)
	write.PUT("/templates/:id", h.UpdateTemplate)
	write.POST("/templates/:id/archive", h.ArchiveTemplate)
	write.POST("/templates/:id/versions", h.CreateVersion)
}

// httpError maps domain errors onto HTTP status codes. ValidationError
// responses include the per-field message map when one is present.
func httpError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		payload := map[string]interface{}{"error": ve.Error()}
		if len(ve.Fields) > 0 {
			payload["fields"] = ve.Fields
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, payload)
	}
	if errors.Is(err, ErrTemplateNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t TemplateDefinition
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Category:      Category(c.QueryParam("category")),
		AvailableOnly: c.QueryParam("available") == "true",
	}
	items, total, err := h.svc.ListTemplates(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch UpdatePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateTemplate(c.Request().Context(), id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ArchiveTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.ArchiveTemplate(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next, err := h.svc.CreateTemplateVersion(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, next)
}

func (h *Handler) ListVersions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	versions, err := h.svc.ListVersions(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, versions)
}

func (h *Handler) PreviewTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var tree ValueTree
	if err := c.Bind(&tree); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	views, err := h.svc.Preview(c.Request().Context(), id, tree)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views)
}
